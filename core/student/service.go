package student

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/casebook/core"
)

var (
	// errors
	ErrNotFound   = errors.New("student not found")
	ErrCodeExists = errors.New("a student with this code already exists")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudent(ctx context.Context, code string) (Student, error)
		QueryStudents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, ns NewStudent, createdBy string) (Student, error)
		Insert(ctx context.Context, fields map[string]string, createdBy string) error
		GetByCode(ctx context.Context, code string) (Student, error)
		Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Student, error)
	}

	service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator) ServiceInterface {
	return &service{repo: repo, validate: validate, translator: translator}
}

// Create validates `ns` and stores it as a new Student.
// Validation failures are returned as *core.ValidationError with operator-readable messages.
func (svc *service) Create(ctx context.Context, ns NewStudent, createdBy string) (Student, error) {
	if err := ns.Validate(svc.validate); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return Student{}, core.NewValidationError(nil, core.TranslateErrors(verrs, svc.translator)...)
		}
		return Student{}, errors.Wrap(err, "validating student")
	}

	now := time.Now().UTC()
	std := Student{
		ID:             uuid.NewString(),
		StudentCode:    ns.StudentCode,
		StudentName:    ns.StudentName,
		SchoolLevel:    ns.SchoolLevel,
		ClassName:      ns.ClassName,
		Department:     ns.Department,
		DateOfBirth:    ns.DateOfBirth,
		EnrollmentDate: ns.EnrollmentDate,
		ParentName:     ns.ParentName,
		ParentPhone:    ns.ParentPhone,
		ParentEmail:    ns.ParentEmail,
		Address:        ns.Address,
		Notes:          ns.Notes,
		Status:         ns.Status,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	std, err := svc.repo.CreateStudent(ctx, std)
	if err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return Student{}, core.NewValidationError(err, core.FieldError{Field: "student_code", Error: err.Error()})
		}
		return Student{}, errors.Wrap(err, "creating student")
	}
	return std, nil
}

// Insert creates a student from a record keyed by canonical field names.
func (svc *service) Insert(ctx context.Context, fields map[string]string, createdBy string) error {
	_, err := svc.Create(ctx, NewStudentFromRecord(fields), createdBy)
	return err
}

func (svc *service) GetByCode(ctx context.Context, code string) (Student, error) {
	return svc.repo.GetStudent(ctx, core.CleanString(code))
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Student, error) {
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter, ordering)
}
