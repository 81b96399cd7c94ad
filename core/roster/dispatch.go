package roster

import (
	"io"
	"path/filepath"
	"strings"
)

type Format string

// Formats
const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatDOC  Format = "doc"
)

// AllowedExtensions is the file picker allow-list.
var AllowedExtensions = []string{".xlsx", ".xls", ".pdf", ".docx", ".doc"}

// Source is an uploaded file: *os.File, multipart.File & *bytes.Reader satisfy it.
type Source interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// DetectFormat returns the format of `filename` from its lowercased extension.
func DetectFormat(filename string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")); f {
	case FormatXLSX, FormatXLS, FormatPDF, FormatDOCX, FormatDOC:
		return f, nil
	}
	return "", ErrUnsupportedFormat
}

func (f Format) IsSpreadsheet() bool { return f == FormatXLSX || f == FormatXLS }

// Load dispatches `src` on the extension of `filename`.
// Spreadsheets are extracted into a batch. PDF and Word files are not auto-extracted:
// they yield an empty batch and an informational notice.
func (e *Extractor) Load(filename string, src Source) (Batch, Notice, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return Batch{}, ErrorNotice(err), err
	}

	switch format {
	case FormatPDF:
		return Batch{}, pdfNotice(), nil
	case FormatDOCX, FormatDOC:
		text, err := ReadWordText(src, format)
		if err != nil {
			return Batch{}, ErrorNotice(err), err
		}
		return Batch{}, wordNotice(len([]rune(text))), nil
	}

	sheet, err := ReadSheet(src, format)
	if err != nil {
		return Batch{}, ErrorNotice(err), err
	}
	batch, err := e.Extract(sheet)
	if err != nil {
		return Batch{}, ErrorNotice(err), err
	}
	return batch, extractedNotice(&batch), nil
}
