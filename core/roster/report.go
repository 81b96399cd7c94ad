package roster

import (
	"bytes"
	"io"
	"net/mail"
	"strconv"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/casebook/core"
	"github.com/trezcool/casebook/core/user"
)

const (
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	templateSheet = "الطلاب"
	rejectedSheet = "السجلات المرفوضة"
	failuresSheet = "أخطاء الاستيراد"
	rowLabel      = "الصف"
	errorsLabel   = "الأخطاء"

	maxTemplateRows = 1000
)

var levelChoices = []string{"ابتدائي", "إعدادي", "ثانوي"}

type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
}

func newSheetWriter(sheet string) (*sheetWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	rtl := true
	if err := f.SetSheetView(sheet, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
		return nil, err
	}
	return &sheetWriter{f: f, sheet: sheet}, nil
}

func (sw *sheetWriter) header(cells []interface{}) error {
	if err := sw.append(cells); err != nil {
		return err
	}
	style, err := sw.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return err
	}
	if err := sw.f.SetRowStyle(sw.sheet, 1, 1, style); err != nil {
		return err
	}
	last, err := excelize.ColumnNumberToName(len(cells))
	if err != nil {
		return err
	}
	return sw.f.SetColWidth(sw.sheet, "A", last, 22)
}

func (sw *sheetWriter) append(cells []interface{}) error {
	sw.row++
	cell, err := excelize.CoordinatesToCellName(1, sw.row)
	if err != nil {
		return err
	}
	return sw.f.SetSheetRow(sw.sheet, cell, &cells)
}

func (sw *sheetWriter) writeTo(w io.Writer) error {
	defer func() { _ = sw.f.Close() }()
	return sw.f.Write(w)
}

func fieldLabels() []interface{} {
	labels := make([]interface{}, 0, len(Fields))
	for _, f := range Fields {
		labels = append(labels, f.Label)
	}
	return labels
}

// WriteTemplate writes an empty roster workbook with the expected column labels.
func WriteTemplate(w io.Writer) error {
	sw, err := newSheetWriter(templateSheet)
	if err != nil {
		return errors.Wrap(err, "creating template")
	}
	if err := sw.header(fieldLabels()); err != nil {
		return errors.Wrap(err, "writing template header")
	}

	dv := excelize.NewDataValidation(true)
	dv.Sqref = "C2:C" + strconv.Itoa(maxTemplateRows)
	if err := dv.SetDropList(levelChoices); err != nil {
		return errors.Wrap(err, "setting level choices")
	}
	if err := sw.f.AddDataValidation(sw.sheet, dv); err != nil {
		return errors.Wrap(err, "setting level choices")
	}
	return errors.Wrap(sw.writeTo(w), "writing template")
}

// WriteRejected writes the invalid candidates of `batch` with their errors, so they can be fixed
// and imported again.
func WriteRejected(w io.Writer, batch Batch) error {
	sw, err := newSheetWriter(rejectedSheet)
	if err != nil {
		return errors.Wrap(err, "creating rejected rows")
	}

	header := append([]interface{}{rowLabel}, fieldLabels()...)
	header = append(header, errorsLabel)
	if err := sw.header(header); err != nil {
		return errors.Wrap(err, "writing rejected rows header")
	}

	for _, cand := range batch.Invalid() {
		cells := make([]interface{}, 0, len(Fields)+2)
		cells = append(cells, cand.Row)
		for _, f := range Fields {
			cells = append(cells, cand.Record[f.Name])
		}
		cells = append(cells, joinErrors(cand.Validation.Errors))
		if err := sw.append(cells); err != nil {
			return errors.Wrap(err, "writing rejected row")
		}
	}
	return errors.Wrap(sw.writeTo(w), "writing rejected rows")
}

// WriteFailures writes the rejected inserts of a commit run.
func WriteFailures(w io.Writer, out Outcome) error {
	sw, err := newSheetWriter(failuresSheet)
	if err != nil {
		return errors.Wrap(err, "creating failures")
	}
	if err := sw.header([]interface{}{rowLabel, LabelOf(FieldStudentCode), errorsLabel}); err != nil {
		return errors.Wrap(err, "writing failures header")
	}
	for _, fl := range out.Failures {
		if err := sw.append([]interface{}{fl.Row, fl.StudentCode, fl.Error}); err != nil {
			return errors.Wrap(err, "writing failure")
		}
	}
	return errors.Wrap(sw.writeTo(w), "writing failures")
}

func joinErrors(errs []string) string {
	var buf bytes.Buffer
	for i, e := range errs {
		if i > 0 {
			buf.WriteString("، ")
		}
		buf.WriteString(e)
	}
	return buf.String()
}

type reportData struct {
	AppName      string
	OperatorName string
	FileName     string
	Succeeded    int
	Failed       int
	Cancelled    bool
	NotAttempted int
	Failures     []Failure
}

// NewReportMessage builds the commit report mailed to the operator.
// Returns nil when the operator has no email address.
func NewReportMessage(conf *core.Config, operator user.User, fileName string, out Outcome) (*core.EmailMessage, error) {
	if operator.Email == "" {
		return nil, nil
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: operator.Name, Address: operator.Email}},
		Subject:      "تقرير استيراد الطلاب: " + fileName,
		TemplateName: "import_report",
		TemplateData: reportData{
			AppName:      conf.AppName,
			OperatorName: operator.Name,
			FileName:     fileName,
			Succeeded:    out.Succeeded,
			Failed:       out.Failed,
			Cancelled:    out.Cancelled,
			NotAttempted: out.NotAttempted(),
			Failures:     out.Failures,
		},
	}

	if len(out.Failures) > 0 {
		var buf bytes.Buffer
		if err := WriteFailures(&buf, out); err != nil {
			return nil, err
		}
		if err := msg.Attach(&buf, "import-failures.xlsx", XLSXContentType); err != nil {
			return nil, errors.Wrap(err, "attaching failures")
		}
	}
	return msg, nil
}
