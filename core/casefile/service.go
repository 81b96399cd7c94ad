package casefile

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/casebook/core"
	"github.com/trezcool/casebook/core/student"
)

// errors
var ErrNotFound = errors.New("case file not found")

const (
	unknownStudentText = "لا يوجد طالب بهذا الرمز"
	closedCaseText     = "لا يمكن تعديل حالة مغلقة"
)

type (
	Repository interface {
		CreateCaseFile(ctx context.Context, cf CaseFile) (CaseFile, error)
		GetCaseFile(ctx context.Context, id string) (CaseFile, error)
		UpdateCaseFile(ctx context.Context, cf CaseFile) (CaseFile, error)
		QueryCaseFiles(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]CaseFile, error)
	}

	// Students looks up the student a case is opened for.
	Students interface {
		GetByCode(ctx context.Context, code string) (student.Student, error)
	}

	ServiceInterface interface {
		Open(ctx context.Context, nc NewCaseFile, createdBy string) (CaseFile, error)
		Get(ctx context.Context, id string) (CaseFile, error)
		Update(ctx context.Context, id string, uc UpdateCaseFile) (CaseFile, error)
		Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]CaseFile, error)
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

func (svc *service) validationError(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		return core.NewValidationError(nil, core.TranslateErrors(verrs, svc.translator)...)
	}
	return errors.Wrap(err, "validating case file")
}

// Open validates `nc` and opens a case for an existing student.
func (svc *service) Open(ctx context.Context, nc NewCaseFile, createdBy string) (CaseFile, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return CaseFile{}, svc.validationError(err)
	}

	std, err := svc.students.GetByCode(ctx, nc.StudentCode)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return CaseFile{}, core.NewValidationError(err, core.FieldError{Field: "student_code", Error: unknownStudentText})
		}
		return CaseFile{}, errors.Wrap(err, "finding student")
	}

	now := time.Now().UTC()
	cf := CaseFile{
		ID:          uuid.NewString(),
		StudentCode: std.StudentCode,
		StudentName: std.StudentName,
		SchoolLevel: std.SchoolLevel,
		ClassName:   std.ClassName,
		CaseType:    nc.CaseType,
		Priority:    nc.Priority,
		Status:      StatusOpen,
		Description: nc.Description,
		Notes:       nc.Notes,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	cf, err = svc.repo.CreateCaseFile(ctx, cf)
	if err != nil {
		return CaseFile{}, errors.Wrap(err, "creating case file")
	}
	return cf, nil
}

func (svc *service) Get(ctx context.Context, id string) (CaseFile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return CaseFile{}, ErrNotFound
	}
	return svc.repo.GetCaseFile(ctx, id)
}

// Update applies `uc` to the case. A closed case can only be reopened.
func (svc *service) Update(ctx context.Context, id string, uc UpdateCaseFile) (CaseFile, error) {
	if err := uc.Validate(svc.validate); err != nil {
		return CaseFile{}, svc.validationError(err)
	}

	cf, err := svc.Get(ctx, id)
	if err != nil {
		return CaseFile{}, err
	}
	reopening := uc.Status != nil && *uc.Status == StatusOpen
	if cf.Status == StatusClosed && !reopening {
		return CaseFile{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: closedCaseText})
	}

	uc.apply(&cf)
	cf.UpdatedAt = time.Now().UTC()
	cf, err = svc.repo.UpdateCaseFile(ctx, cf)
	if err != nil {
		return CaseFile{}, errors.Wrap(err, "updating case file")
	}
	return cf, nil
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]CaseFile, error) {
	filter.Clean()
	return svc.repo.QueryCaseFiles(ctx, filter, ordering)
}
