package casefile

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/casebook/core"
)

// Case types
const (
	TypePsychological = "psychological"
	TypeSocial        = "social"
	TypeHealth        = "health"
	TypeAcademic      = "academic"
	TypeBehavioral    = "behavioral"
	TypeFamily        = "family"
	TypeOther         = "other"
)

// Priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Statuses
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

// CaseFile is a social case opened for a student.
// Student name, level & class are copied from the student record when the case is opened.
type CaseFile struct {
	ID          string    `json:"id"`
	StudentCode string    `json:"student_code"`
	StudentName string    `json:"student_name"`
	SchoolLevel string    `json:"school_level,omitempty"`
	ClassName   string    `json:"class_name,omitempty"`
	CaseType    string    `json:"case_type"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Notes       string    `json:"notes,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// NewCaseFile contains information needed to open a new CaseFile.
type NewCaseFile struct {
	StudentCode string `json:"student_code" label:"رمز الطالب" validate:"required,max=64"`
	CaseType    string `json:"case_type" label:"نوع الحالة" validate:"required,oneof=psychological social health academic behavioral family other"`
	Priority    string `json:"priority" label:"الأولوية" validate:"oneof=low medium high urgent"`
	Description string `json:"description" label:"وصف الحالة" validate:"required"`
	Notes       string `json:"notes" label:"ملاحظات"`
}

func (nc *NewCaseFile) clean() {
	nc.StudentCode = core.CleanString(nc.StudentCode)
	nc.CaseType = core.CleanString(nc.CaseType, true /* lower */)
	nc.Priority = core.CleanString(nc.Priority, true /* lower */)
	if nc.Priority == "" {
		nc.Priority = PriorityMedium
	}
	nc.Description = core.CleanString(nc.Description)
	nc.Notes = core.CleanString(nc.Notes)
}

// Validate cleans the NewCaseFile then validates it.
func (nc *NewCaseFile) Validate(validate *validator.Validate) error {
	nc.clean()
	return validate.Struct(nc)
}

// UpdateCaseFile holds the fields an operator may change on an open case.
// Nil fields are left untouched.
type UpdateCaseFile struct {
	Status   *string `json:"status" label:"الحالة" validate:"omitempty,oneof=open in_progress resolved closed"`
	Priority *string `json:"priority" label:"الأولوية" validate:"omitempty,oneof=low medium high urgent"`
	Notes    *string `json:"notes" label:"ملاحظات"`
}

func (uc *UpdateCaseFile) clean() {
	for _, s := range []*string{uc.Status, uc.Priority} {
		if s != nil {
			*s = core.CleanString(*s, true /* lower */)
		}
	}
	if uc.Notes != nil {
		*uc.Notes = core.CleanString(*uc.Notes)
	}
}

// Validate cleans the UpdateCaseFile then validates it.
func (uc *UpdateCaseFile) Validate(validate *validator.Validate) error {
	uc.clean()
	return validate.Struct(uc)
}

func (uc UpdateCaseFile) apply(cf *CaseFile) {
	if uc.Status != nil {
		cf.Status = *uc.Status
	}
	if uc.Priority != nil {
		cf.Priority = *uc.Priority
	}
	if uc.Notes != nil {
		cf.Notes = *uc.Notes
	}
}

type QueryFilter struct {
	Search      string `query:"search"`
	StudentCode string `query:"student_code"`
	CaseType    string `query:"case_type"`
	Priority    string `query:"priority"`
	Status      string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.StudentCode = core.CleanString(qf.StudentCode)
	qf.CaseType = core.CleanString(qf.CaseType, true /* lower */)
	qf.Priority = core.CleanString(qf.Priority, true /* lower */)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
