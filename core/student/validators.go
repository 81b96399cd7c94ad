package student

import (
	"strconv"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/casebook/core"
)

const DateLayout = "2006-01-02"

var (
	isoDateTag  = "isodate"
	isoDateText = "{0} ليس تاريخا صالحا"

	// accepted input layouts, tried in order
	dateLayouts = []string{DateLayout, "2006/01/02", "02/01/2006", "02-01-2006", "2006-01-02T15:04:05Z07:00"}

	// spreadsheet serial dates: 1927-05-18 .. 9999-12-31.
	// Smaller numbers are more likely years or day numbers typed as text.
	minSerial, maxSerial = 10000.0, 2958465.0
)

// RegisterValidators registers the student validators & their translations on `validate`.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(isoDateTag, isoDateValidation)
	core.RegisterCustomTranslation(validate, translator, isoDateTag, isoDateText)
}

func isoDateValidation(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}

// ParseDate parses the date formats found in school rosters, including spreadsheet serial numbers.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= minSerial && serial <= maxSerial {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDate returns `s` formatted as YYYY-MM-DD when it can be parsed,
// otherwise the trimmed input is returned untouched (and fails validation).
func NormalizeDate(s string) string {
	if t, ok := ParseDate(s); ok {
		return t.Format(DateLayout)
	}
	return strings.TrimSpace(s)
}
