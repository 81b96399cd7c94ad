package roster

import (
	"fmt"
	"io"

	"github.com/extrame/xls"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// ReadSheet parses the first sheet of a spreadsheet. Other sheets are ignored.
func ReadSheet(src Source, format Format) (RawSheet, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "rewinding file")
	}
	switch format {
	case FormatXLSX:
		return readXLSX(src)
	case FormatXLS:
		return readXLS(src)
	}
	return nil, ErrUnsupportedFormat
}

func readXLSX(r io.Reader) (RawSheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(ErrUnreadableFile, err.Error())
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	// raw values keep dates as serial numbers, student.ParseDate understands them
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrap(ErrUnreadableFile, err.Error())
	}
	return rows, nil
}

func readXLS(rs io.ReadSeeker) (sheet RawSheet, err error) {
	// the BIFF parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			sheet, err = nil, errors.Wrap(ErrUnreadableFile, fmt.Sprint(r))
		}
	}()

	wb, err := xls.OpenReader(rs, "utf-8")
	if err != nil {
		return nil, errors.Wrap(ErrUnreadableFile, err.Error())
	}
	if wb.NumSheets() == 0 {
		return nil, ErrEmptySheet
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, ErrEmptySheet
	}

	sheet = make(RawSheet, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := sheetRow(ws, i)
		if row == nil {
			sheet = append(sheet, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for col := 0; col < row.LastCol(); col++ {
			cells = append(cells, row.Col(col))
		}
		sheet = append(sheet, cells)
	}
	return sheet, nil
}

// sheetRow returns nil for a row index without a ROW record. xls.WorkSheet.Row panics on those.
func sheetRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}
