package roster

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/casebook/core"
)

// DefaultStatus is given to candidates whose sheet has no status.
const DefaultStatus = "active"

// RawSheet is a parsed sheet: the header row followed by the data rows.
type RawSheet [][]string

// Record maps canonical fields to cell values.
type Record map[string]string

// Fields returns a copy of the record, as handed to the insert collaborator.
func (r Record) Fields() map[string]string {
	fields := make(map[string]string, len(r))
	for k, v := range r {
		fields[k] = v
	}
	return fields
}

// ValidationResult: IsValid is true iff Errors is empty.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// CandidateStudent is one data row of a roster and its validation result.
type CandidateStudent struct {
	Row        int              `json:"row"` // 1-based sheet row
	Record     Record           `json:"record"`
	Validation ValidationResult `json:"validation"`
}

// Code returns the student code of the candidate, if any.
func (c CandidateStudent) Code() string { return c.Record[FieldStudentCode] }

// Batch is the set of candidates produced by one extraction.
type Batch struct {
	Columns    []HeaderMatch      `json:"columns"`
	Candidates []CandidateStudent `json:"candidates"`
	Skipped    int                `json:"skipped"` // rows with neither code nor name
}

func (b *Batch) IsEmpty() bool { return len(b.Candidates) == 0 }

func (b *Batch) Valid() []CandidateStudent {
	valid := make([]CandidateStudent, 0, len(b.Candidates))
	for _, c := range b.Candidates {
		if c.Validation.IsValid {
			valid = append(valid, c)
		}
	}
	return valid
}

func (b *Batch) Invalid() []CandidateStudent {
	invalid := make([]CandidateStudent, 0)
	for _, c := range b.Candidates {
		if !c.Validation.IsValid {
			invalid = append(invalid, c)
		}
	}
	return invalid
}

func (b *Batch) ValidCount() int {
	var n int
	for _, c := range b.Candidates {
		if c.Validation.IsValid {
			n++
		}
	}
	return n
}

func (b *Batch) InvalidCount() int { return len(b.Candidates) - b.ValidCount() }

// requiredFields holds what makes a candidate committable.
type requiredFields struct {
	StudentCode string `label:"رمز الطالب" validate:"required"`
	StudentName string `label:"اسم الطالب" validate:"required"`
}

// Extractor turns raw sheets into validated batches.
type Extractor struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewExtractor expects a validator prepared by core.NewValidator.
func NewExtractor(validate *validator.Validate, translator ut.Translator) *Extractor {
	return &Extractor{validate: validate, translator: translator}
}

// Validate checks that the record has a non-blank student code and name.
func (e *Extractor) Validate(rec Record) ValidationResult {
	req := requiredFields{
		StudentCode: strings.TrimSpace(rec[FieldStudentCode]),
		StudentName: strings.TrimSpace(rec[FieldStudentName]),
	}
	res := ValidationResult{IsValid: true, Errors: []string{}}
	if err := e.validate.Struct(req); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			res.Errors = append(res.Errors, err.Error())
		} else {
			for _, fe := range core.TranslateErrors(verrs, e.translator) {
				res.Errors = append(res.Errors, fe.Error)
			}
		}
		res.IsValid = len(res.Errors) == 0
	}
	return res
}

// Extract maps the data rows of `sheet` onto candidates, in row order.
// Fully blank rows are ignored; rows without code and name are counted as skipped.
func (e *Extractor) Extract(sheet RawSheet) (Batch, error) {
	if len(sheet) < 2 {
		return Batch{}, ErrEmptySheet
	}

	batch := Batch{
		Columns:    make([]HeaderMatch, len(sheet[0])),
		Candidates: make([]CandidateStudent, 0, len(sheet)-1),
	}
	for i, label := range sheet[0] {
		batch.Columns[i] = NormalizeHeader(label)
	}

	for i, row := range sheet[1:] {
		if isBlankRow(row) {
			continue
		}

		rec := make(Record, len(row))
		for col, cell := range row {
			if col >= len(batch.Columns) || cell == "" {
				continue
			}
			field := batch.Columns[col].Field
			if field == "" {
				continue
			}
			value := strings.TrimSpace(cell)
			if field == FieldSchoolLevel {
				value = NormalizeLevel(value)
			}
			rec[field] = value
		}

		if rec[FieldStudentCode] == "" && rec[FieldStudentName] == "" {
			batch.Skipped++
			continue
		}
		if rec[FieldStatus] == "" {
			rec[FieldStatus] = DefaultStatus
		}
		batch.Candidates = append(batch.Candidates, CandidateStudent{
			Row:        i + 2,
			Record:     rec,
			Validation: e.Validate(rec),
		})
	}
	return batch, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
