package roster

import (
	"archive/zip"
	"encoding/binary"
	"encoding/xml"
	"io"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/richardlehane/mscfb"
)

const (
	docxBody       = "word/document.xml"
	docStream      = "WordDocument"
	docFIBSize     = 0x200 // text never starts inside the file information block
	docMinRunChars = 3
)

// ReadWordText returns the plain text of a Word document.
// The text is not parsed into records.
func ReadWordText(src Source, format Format) (string, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", errors.Wrap(err, "rewinding file")
	}
	switch format {
	case FormatDOCX:
		return readDOCX(src)
	case FormatDOC:
		return readDOC(src)
	}
	return "", ErrUnsupportedFormat
}

func sourceSize(src Source) (int64, error) {
	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	_, err = src.Seek(0, io.SeekStart)
	return size, err
}

func readDOCX(src Source) (string, error) {
	size, err := sourceSize(src)
	if err != nil {
		return "", errors.Wrap(err, "sizing file")
	}
	zr, err := zip.NewReader(src, size)
	if err != nil {
		return "", errors.Wrap(ErrUnreadableFile, err.Error())
	}

	for _, zf := range zr.File {
		if zf.Name != docxBody {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return "", errors.Wrap(ErrUnreadableFile, err.Error())
		}
		defer func() { _ = rc.Close() }()
		return docxText(rc)
	}
	return "", errors.Wrap(ErrUnreadableFile, "missing "+docxBody)
}

// docxText collects the <w:t> runs of a document body, one line per paragraph.
func docxText(r io.Reader) (string, error) {
	var (
		sb     strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Wrap(ErrUnreadableFile, err.Error())
		}
		switch el := tok.(type) {
		case xml.StartElement:
			inText = el.Name.Local == "t"
			if el.Name.Local == "tab" {
				sb.WriteByte('\t')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(el)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func readDOC(src Source) (string, error) {
	doc, err := mscfb.New(src)
	if err != nil {
		return "", errors.Wrap(ErrUnreadableFile, err.Error())
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name != docStream {
			continue
		}
		stream, err := io.ReadAll(entry)
		if err != nil {
			return "", errors.Wrap(ErrUnreadableFile, err.Error())
		}
		return scrapeDocText(stream), nil
	}
	return "", errors.Wrap(ErrUnreadableFile, "missing "+docStream+" stream")
}

// scrapeDocText approximates the text of a WordDocument stream without the piece table.
// Streams whose high bytes are mostly Latin or Arabic code pages are decoded as UTF-16LE,
// others as 8-bit text; only printable runs are kept.
func scrapeDocText(stream []byte) string {
	if len(stream) <= docFIBSize {
		return ""
	}
	body := stream[docFIBSize:]

	if looksUTF16(body) {
		units := make([]uint16, len(body)/2)
		for i := range units {
			units[i] = binary.LittleEndian.Uint16(body[2*i:])
		}
		return printableRuns(utf16.Decode(units))
	}

	narrow := make([]rune, len(body))
	for i, b := range body {
		narrow[i] = rune(b)
	}
	return printableRuns(narrow)
}

func looksUTF16(body []byte) bool {
	var hits, total int
	for i := 1; i < len(body); i += 2 {
		if body[i-1] == 0 && body[i] == 0 {
			continue // padding
		}
		total++
		if body[i] == 0x00 || body[i] == 0x06 {
			hits++
		}
	}
	return total > 0 && hits*10 >= total*6
}

func printableRuns(runes []rune) string {
	var (
		sb  strings.Builder
		run []rune
	)
	flush := func() {
		if countLetters(run) >= docMinRunChars {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strings.TrimSpace(string(run)))
		}
		run = run[:0]
	}
	for _, r := range runes {
		if r == utf8.RuneError || !unicode.IsPrint(r) {
			flush()
			continue
		}
		run = append(run, r)
	}
	flush()
	return sb.String()
}

func countLetters(run []rune) int {
	var n int
	for _, r := range run {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
