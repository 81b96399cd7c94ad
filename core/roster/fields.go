package roster

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/casebook/core"
)

// Canonical fields
const (
	FieldStudentCode    = "student_code"
	FieldStudentName    = "student_name"
	FieldSchoolLevel    = "school_level"
	FieldClassName      = "class_name"
	FieldDepartment     = "department"
	FieldDateOfBirth    = "date_of_birth"
	FieldEnrollmentDate = "enrollment_date"
	FieldParentName     = "parent_name"
	FieldParentPhone    = "parent_phone"
	FieldParentEmail    = "parent_email"
	FieldAddress        = "address"
	FieldNotes          = "notes"
	FieldStatus         = "status"
)

// Fields lists the canonical fields in template column order, with their primary label.
var Fields = []struct {
	Name  string
	Label string
}{
	{FieldStudentCode, "رمز الطالب"},
	{FieldStudentName, "اسم الطالب"},
	{FieldSchoolLevel, "المستوى الدراسي"},
	{FieldClassName, "القسم"},
	{FieldDepartment, "القطاع"},
	{FieldDateOfBirth, "تاريخ الميلاد"},
	{FieldEnrollmentDate, "تاريخ التسجيل"},
	{FieldParentName, "اسم ولي الأمر"},
	{FieldParentPhone, "رقم هاتف ولي الأمر"},
	{FieldParentEmail, "بريد ولي الأمر الإلكتروني"},
	{FieldAddress, "العنوان"},
	{FieldNotes, "ملاحظات"},
	{FieldStatus, "الحالة"},
}

// fieldMapping maps column labels found in rosters to canonical fields.
// Canonical names map to themselves so that normalizing twice is harmless.
var fieldMapping = buildFieldMapping(map[string]string{
	"الاسم":                  FieldStudentName,
	"اسم التلميذ":            FieldStudentName,
	"رقم الطالب":             FieldStudentCode,
	"كود الطالب":             FieldStudentCode,
	"المستوى":                FieldSchoolLevel,
	"المرحلة":                FieldSchoolLevel,
	"المرحلة الدراسية":       FieldSchoolLevel,
	"الفصل":                  FieldClassName,
	"الصف":                   FieldClassName,
	"الشعبة":                 FieldDepartment,
	"تاريخ الالتحاق":         FieldEnrollmentDate,
	"ولي الأمر":              FieldParentName,
	"هاتف ولي الأمر":         FieldParentPhone,
	"رقم الهاتف":             FieldParentPhone,
	"البريد الإلكتروني":      FieldParentEmail,
	"البريد الالكتروني":      FieldParentEmail,
	"بريد ولي الأمر":         FieldParentEmail,
	"ملاحظة":                 FieldNotes,
	"Student Code":           FieldStudentCode,
	"Student Name":           FieldStudentName,
	"School Level":           FieldSchoolLevel,
	"Level":                  FieldSchoolLevel,
	"Class":                  FieldClassName,
	"Class Name":             FieldClassName,
	"Department":             FieldDepartment,
	"Date of Birth":          FieldDateOfBirth,
	"Enrollment Date":        FieldEnrollmentDate,
	"Parent Name":            FieldParentName,
	"Parent Phone":           FieldParentPhone,
	"Parent Email":           FieldParentEmail,
	"Address":                FieldAddress,
	"Notes":                  FieldNotes,
	"Status":                 FieldStatus,
})

func buildFieldMapping(extra map[string]string) map[string]string {
	m := make(map[string]string, len(Fields)*2+len(extra))
	for _, f := range Fields {
		m[f.Label] = f.Name
		m[f.Name] = f.Name
	}
	for label, field := range extra {
		m[label] = field
	}
	return m
}

// LabelOf returns the primary label of a canonical field, or the field itself.
func LabelOf(field string) string {
	for _, f := range Fields {
		if f.Name == field {
			return f.Label
		}
	}
	return field
}

type HeaderKind int

const (
	HeaderKnown HeaderKind = iota + 1
	HeaderGuessed
)

func (k HeaderKind) String() string {
	switch k {
	case HeaderKnown:
		return "known"
	case HeaderGuessed:
		return "guessed"
	}
	return "unknown"
}

func (k HeaderKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *HeaderKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "known":
		*k = HeaderKnown
	case "guessed":
		*k = HeaderGuessed
	default:
		return errors.Errorf("unknown header kind %q", text)
	}
	return nil
}

// HeaderMatch is the outcome of normalizing a column label.
type HeaderMatch struct {
	Label string     `json:"label"`
	Field string     `json:"field"`
	Kind  HeaderKind `json:"kind"`
}

// Known reports whether Field is a confident mapping to a canonical field.
func (hm HeaderMatch) Known() bool { return hm.Kind == HeaderKnown }

// NormalizeHeader trims `label` and looks it up in the field mapping.
// Unknown labels fall back to their lowercased, underscore-joined form.
func NormalizeHeader(label string) HeaderMatch {
	trimmed := strings.TrimSpace(label)
	if field, ok := fieldMapping[trimmed]; ok {
		return HeaderMatch{Label: label, Field: field, Kind: HeaderKnown}
	}
	return HeaderMatch{Label: label, Field: core.Slugify(trimmed), Kind: HeaderGuessed}
}
