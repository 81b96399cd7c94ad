package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/casebook/core"
)

// School levels
const (
	LevelPrimary   = "primary"
	LevelMiddle    = "middle"
	LevelSecondary = "secondary"
)

// Statuses
const (
	StatusActive      = "active"
	StatusInactive    = "inactive"
	StatusGraduated   = "graduated"
	StatusTransferred = "transferred"
)

var Levels = []string{LevelPrimary, LevelMiddle, LevelSecondary}

// Student is a student record of the school roster.
// Dates are ISO formatted (YYYY-MM-DD), empty when unknown.
type Student struct {
	ID             string    `json:"id"`
	StudentCode    string    `json:"student_code"`
	StudentName    string    `json:"student_name"`
	SchoolLevel    string    `json:"school_level,omitempty"`
	ClassName      string    `json:"class_name,omitempty"`
	Department     string    `json:"department,omitempty"`
	DateOfBirth    string    `json:"date_of_birth,omitempty"`
	EnrollmentDate string    `json:"enrollment_date,omitempty"`
	ParentName     string    `json:"parent_name,omitempty"`
	ParentPhone    string    `json:"parent_phone,omitempty"`
	ParentEmail    string    `json:"parent_email,omitempty"`
	Address        string    `json:"address,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	Status         string    `json:"status"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	StudentCode    string `json:"student_code" label:"رمز الطالب" validate:"required,max=64"`
	StudentName    string `json:"student_name" label:"اسم الطالب" validate:"required,max=200"`
	SchoolLevel    string `json:"school_level" label:"المستوى الدراسي" validate:"omitempty,oneof=primary middle secondary"`
	ClassName      string `json:"class_name" label:"القسم"`
	Department     string `json:"department" label:"القطاع"`
	DateOfBirth    string `json:"date_of_birth" label:"تاريخ الميلاد" validate:"omitempty,isodate"`
	EnrollmentDate string `json:"enrollment_date" label:"تاريخ التسجيل" validate:"omitempty,isodate"`
	ParentName     string `json:"parent_name" label:"اسم ولي الأمر"`
	ParentPhone    string `json:"parent_phone" label:"رقم هاتف ولي الأمر" validate:"omitempty,max=32"`
	ParentEmail    string `json:"parent_email" label:"بريد ولي الأمر الإلكتروني" validate:"omitempty,email"`
	Address        string `json:"address" label:"العنوان"`
	Notes          string `json:"notes" label:"ملاحظات"`
	Status         string `json:"status" label:"الحالة" validate:"omitempty,oneof=active inactive graduated transferred"`
}

// NewStudentFromRecord maps a record keyed by canonical field names onto a NewStudent.
// Unknown keys are ignored.
func NewStudentFromRecord(rec map[string]string) NewStudent {
	return NewStudent{
		StudentCode:    rec["student_code"],
		StudentName:    rec["student_name"],
		SchoolLevel:    rec["school_level"],
		ClassName:      rec["class_name"],
		Department:     rec["department"],
		DateOfBirth:    rec["date_of_birth"],
		EnrollmentDate: rec["enrollment_date"],
		ParentName:     rec["parent_name"],
		ParentPhone:    rec["parent_phone"],
		ParentEmail:    rec["parent_email"],
		Address:        rec["address"],
		Notes:          rec["notes"],
		Status:         rec["status"],
	}
}

func (ns *NewStudent) clean() {
	ns.StudentCode = core.CleanString(ns.StudentCode)
	ns.StudentName = core.CleanString(ns.StudentName)
	ns.SchoolLevel = core.CleanString(ns.SchoolLevel, true /* lower */)
	ns.ClassName = core.CleanString(ns.ClassName)
	ns.Department = core.CleanString(ns.Department)
	ns.DateOfBirth = NormalizeDate(ns.DateOfBirth)
	ns.EnrollmentDate = NormalizeDate(ns.EnrollmentDate)
	ns.ParentName = core.CleanString(ns.ParentName)
	ns.ParentPhone = core.CleanString(ns.ParentPhone)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)
	ns.Address = core.CleanString(ns.Address)
	ns.Notes = core.CleanString(ns.Notes)
	ns.Status = core.CleanString(ns.Status, true /* lower */)
	if ns.Status == "" {
		ns.Status = StatusActive
	}
}

// Validate cleans the NewStudent then validates it.
func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.clean()
	return validate.Struct(ns)
}

type QueryFilter struct {
	Search      string `query:"search"`
	SchoolLevel string `query:"school_level"`
	Status      string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.SchoolLevel = core.CleanString(qf.SchoolLevel, true /* lower */)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.SchoolLevel == "" && qf.Status == ""
}
