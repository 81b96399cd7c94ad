package attendance

import (
	"context"
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/casebook/core"
	"github.com/trezcool/casebook/core/student"
)

const (
	invalidDateText    = "التاريخ ليس تاريخا صالحا"
	unknownStudentText = "لا يوجد طالب بهذا الرمز"
	inactiveText       = "الطالب غير نشط"
	duplicateText      = "الطالب مكرر في القائمة"
)

type (
	Repository interface {
		// ReplaceDay drops every record of `date` then stores `recs`, atomically.
		ReplaceDay(ctx context.Context, date string, recs []Record) error
		QueryRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
	}

	// Students looks up the students attendance is taken for.
	Students interface {
		GetByCode(ctx context.Context, code string) (student.Student, error)
	}

	ServiceInterface interface {
		SaveDay(ctx context.Context, date string, entries []Entry, recordedBy string) ([]Record, error)
		Query(ctx context.Context, filter QueryFilter) ([]Record, error)
		StudentSummary(ctx context.Context, code string) (Summary, error)
	}

	service struct {
		repo       Repository
		students   Students
		validate   *validator.Validate
		translator ut.Translator
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, students Students, validate *validator.Validate, translator ut.Translator) ServiceInterface {
	return &service{repo: repo, students: students, validate: validate, translator: translator}
}

// SaveDay replaces the attendance sheet of `date` with `entries`.
// Only active students may be listed, each at most once. Nothing is stored when an entry is invalid.
func (svc *service) SaveDay(ctx context.Context, date string, entries []Entry, recordedBy string) ([]Record, error) {
	day, ok := student.ParseDate(date)
	if !ok {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "date", Error: invalidDateText})
	}
	date = day.Format(student.DateLayout)

	var flds []core.FieldError
	fieldErr := func(i int, field, msg string) {
		flds = append(flds, core.FieldError{Field: fmt.Sprintf("entries[%d].%s", i, field), Error: msg})
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(entries))
	recs := make([]Record, 0, len(entries))
	for i := range entries {
		e := entries[i]
		if err := e.Validate(svc.validate); err != nil {
			verrs, ok := err.(validator.ValidationErrors)
			if !ok {
				return nil, errors.Wrap(err, "validating attendance entry")
			}
			for _, fld := range core.TranslateErrors(verrs, svc.translator) {
				fieldErr(i, fld.Field, fld.Error)
			}
			continue
		}
		if seen[e.StudentCode] {
			fieldErr(i, "student_code", duplicateText)
			continue
		}
		seen[e.StudentCode] = true

		std, err := svc.students.GetByCode(ctx, e.StudentCode)
		if err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				fieldErr(i, "student_code", unknownStudentText)
				continue
			}
			return nil, errors.Wrap(err, "finding student")
		}
		if std.Status != student.StatusActive {
			fieldErr(i, "student_code", inactiveText)
			continue
		}

		recs = append(recs, Record{
			ID:          uuid.NewString(),
			StudentCode: std.StudentCode,
			StudentName: std.StudentName,
			Date:        date,
			Status:      e.Status,
			Notes:       e.Notes,
			RecordedBy:  recordedBy,
			CreatedAt:   now,
		})
	}
	if len(flds) > 0 {
		return nil, core.NewValidationError(nil, flds...)
	}

	if err := svc.repo.ReplaceDay(ctx, date, recs); err != nil {
		return nil, errors.Wrap(err, "saving attendance")
	}
	return recs, nil
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Record, error) {
	filter.Clean()
	if filter.Date != "" {
		day, ok := student.ParseDate(filter.Date)
		if !ok {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "date", Error: invalidDateText})
		}
		filter.Date = day.Format(student.DateLayout)
	}
	return svc.repo.QueryRecords(ctx, filter)
}

// StudentSummary counts the attendance records of an existing student.
func (svc *service) StudentSummary(ctx context.Context, code string) (Summary, error) {
	std, err := svc.students.GetByCode(ctx, code)
	if err != nil {
		return Summary{}, err
	}
	recs, err := svc.repo.QueryRecords(ctx, QueryFilter{StudentCode: std.StudentCode})
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying attendance")
	}
	return summarize(std.StudentCode, recs), nil
}
