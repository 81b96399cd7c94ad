package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/casebook/core"
)

// Statuses
const (
	StatusPresent   = "present"
	StatusAbsent    = "absent"
	StatusLate      = "late"
	StatusJustified = "justified" // excused absence
)

// Record is the attendance of one student on one school day.
type Record struct {
	ID          string    `json:"id"`
	StudentCode string    `json:"student_code"`
	StudentName string    `json:"student_name"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	RecordedBy  string    `json:"recorded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// Entry is one line of a day's attendance sheet.
type Entry struct {
	StudentCode string `json:"student_code" label:"رمز الطالب" validate:"required,max=64"`
	Status      string `json:"status" label:"الحضور" validate:"required,oneof=present absent late justified"`
	Notes       string `json:"notes" label:"ملاحظات"`
}

func (e *Entry) clean() {
	e.StudentCode = core.CleanString(e.StudentCode)
	e.Status = core.CleanString(e.Status, true /* lower */)
	e.Notes = core.CleanString(e.Notes)
}

// Validate cleans the Entry then validates it.
func (e *Entry) Validate(validate *validator.Validate) error {
	e.clean()
	return validate.Struct(e)
}

type QueryFilter struct {
	Date        string `query:"date"`
	StudentCode string `query:"student_code"`
	Status      string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Date = core.CleanString(qf.Date)
	qf.StudentCode = core.CleanString(qf.StudentCode)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

// Summary counts a student's records per status.
type Summary struct {
	StudentCode string `json:"student_code"`
	Present     int    `json:"present"`
	Absent      int    `json:"absent"`
	Late        int    `json:"late"`
	Justified   int    `json:"justified"`
}

func summarize(code string, recs []Record) Summary {
	sum := Summary{StudentCode: code}
	for _, rec := range recs {
		switch rec.Status {
		case StatusPresent:
			sum.Present++
		case StatusAbsent:
			sum.Absent++
		case StatusLate:
			sum.Late++
		case StatusJustified:
			sum.Justified++
		}
	}
	return sum
}
