package roster_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/casebook/core"
	"github.com/trezcool/casebook/core/roster"
	"github.com/trezcool/casebook/core/user"
)

func readBack(t *testing.T, buf *bytes.Buffer) (string, [][]string) {
	t.Helper()
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetList()[0]
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return sheet, rows
}

func TestWriteTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, roster.WriteTemplate(&buf))

	_, rows := readBack(t, &buf)
	require.Len(t, rows, 1)
	require.Len(t, rows[0], len(roster.Fields))

	// the template must round trip through the extractor's header mapping
	for i, label := range rows[0] {
		hm := roster.NormalizeHeader(label)
		assert.True(t, hm.Known(), label)
		assert.Equal(t, roster.Fields[i].Name, hm.Field)
	}
}

func TestWriteRejected(t *testing.T) {
	batch, err := newExtractor().Extract(roster.RawSheet{
		{codeLabel, nameLabel},
		{"S1", "Ali"},
		{"", "NoCode"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, roster.WriteRejected(&buf, batch))

	_, rows := readBack(t, &buf)
	require.Len(t, rows, 2, "header + the invalid row")
	assert.Equal(t, "3", rows[1][0])
	assert.Equal(t, "NoCode", rows[1][2])
	assert.Equal(t, "رمز الطالب مطلوب", rows[1][len(rows[1])-1])
}

func TestNewReportMessage(t *testing.T) {
	conf := core.NewTestConfig()
	out := roster.Outcome{
		Total:     3,
		Succeeded: 2,
		Failed:    1,
		Failures:  []roster.Failure{{Row: 4, StudentCode: "S2", Error: "duplicate student code"}},
	}

	msg, err := roster.NewReportMessage(conf, user.User{Name: "Mona"}, "roster.xlsx", out)
	require.NoError(t, err)
	assert.Nil(t, msg, "no email, no report")

	msg, err = roster.NewReportMessage(conf, user.User{Name: "Mona", Email: "mona@test.local"}, "roster.xlsx", out)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.True(t, msg.HasRecipients())
	require.True(t, msg.HasAttachments())
	assert.Equal(t, roster.XLSXContentType, msg.Attachments[0].ContentType)

	require.NoError(t, msg.Render())
	assert.True(t, msg.HasContent())
	for _, want := range []string{"Mona", "roster.xlsx", "S2", "duplicate student code"} {
		assert.True(t, strings.Contains(msg.TextContent, want), "text content misses %q", want)
		assert.True(t, strings.Contains(msg.HTMLContent, want), "html content misses %q", want)
	}
}
