package roster_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/casebook/core/roster"
)

func TestExtractor_Extract(t *testing.T) {
	ext := newExtractor()

	t.Run("two valid shapes", func(t *testing.T) {
		batch, err := ext.Extract(roster.RawSheet{
			{codeLabel, nameLabel, levelLabel},
			{"S001", "Ahmed", "ابتدائي"},
			{"", "NoCode", "ثانوي"},
		})
		require.NoError(t, err)
		require.Len(t, batch.Candidates, 2)

		first := batch.Candidates[0]
		assert.Equal(t, roster.Record{
			roster.FieldStudentCode: "S001",
			roster.FieldStudentName: "Ahmed",
			roster.FieldSchoolLevel: "primary",
			roster.FieldStatus:      roster.DefaultStatus,
		}, first.Record)
		assert.True(t, first.Validation.IsValid)
		assert.Empty(t, first.Validation.Errors)
		assert.Equal(t, 2, first.Row)

		second := batch.Candidates[1]
		_, hasCode := second.Record[roster.FieldStudentCode]
		assert.False(t, hasCode, "empty cells are omitted")
		assert.Equal(t, "secondary", second.Record[roster.FieldSchoolLevel])
		assert.False(t, second.Validation.IsValid)
		assert.Equal(t, []string{"رمز الطالب مطلوب"}, second.Validation.Errors)
		assert.Equal(t, 3, second.Row)

		assert.Equal(t, 1, batch.ValidCount())
		assert.Equal(t, 1, batch.InvalidCount())
		assert.Equal(t, 0, batch.Skipped)
	})

	t.Run("fewer than 2 rows", func(t *testing.T) {
		for _, sheet := range []roster.RawSheet{nil, {}, {{codeLabel, nameLabel}}} {
			_, err := ext.Extract(sheet)
			if errors.Cause(err) != roster.ErrEmptySheet {
				t.Errorf("Extract(%v) error = %v; want %v", sheet, err, roster.ErrEmptySheet)
			}
		}
	})

	t.Run("blank and skipped rows", func(t *testing.T) {
		batch, err := ext.Extract(roster.RawSheet{
			{codeLabel, nameLabel, "القسم"},
			{},
			{"", " ", ""},
			{"S1", "Ali"},
			{"", "", "3B"},
			nil,
			{"S2", "", "4A"},
		})
		require.NoError(t, err)
		require.Len(t, batch.Candidates, 2)
		assert.Equal(t, 1, batch.Skipped, "rows with a class but no code nor name are skipped")
		assert.Equal(t, "S1", batch.Candidates[0].Code())
		assert.Equal(t, 4, batch.Candidates[0].Row)
		assert.Equal(t, "S2", batch.Candidates[1].Code())
		assert.Equal(t, []string{"اسم الطالب مطلوب"}, batch.Candidates[1].Validation.Errors)
	})

	t.Run("trimming, status & unknown columns", func(t *testing.T) {
		batch, err := ext.Extract(roster.RawSheet{
			{" رمز الطالب ", nameLabel, "الحالة", "Blood Type", ""},
			{"  S9 ", " Mona ", "graduated", "O+", "ignored", "beyond headers"},
			{"S10", "  ", "", "", ""},
		})
		require.NoError(t, err)
		require.Len(t, batch.Candidates, 2)

		assert.Equal(t, roster.Record{
			roster.FieldStudentCode: "S9",
			roster.FieldStudentName: "Mona",
			roster.FieldStatus:      "graduated",
			"blood_type":            "O+",
		}, batch.Candidates[0].Record)

		// whitespace-only name is kept blank, so the row is invalid
		second := batch.Candidates[1]
		assert.Equal(t, "", second.Record[roster.FieldStudentName])
		assert.Equal(t, roster.DefaultStatus, second.Record[roster.FieldStatus])
		assert.False(t, second.Validation.IsValid)

		require.Len(t, batch.Columns, 5)
		assert.True(t, batch.Columns[0].Known())
		assert.Equal(t, roster.HeaderGuessed, batch.Columns[3].Kind)
	})

	t.Run("validity invariant", func(t *testing.T) {
		batch, err := ext.Extract(roster.RawSheet{
			{codeLabel, nameLabel},
			{"A", "B"},
			{"A", ""},
			{"", "B"},
			{" ", "B"},
			{"A", "\t"},
		})
		require.NoError(t, err)
		for _, c := range batch.Candidates {
			code, name := c.Record[roster.FieldStudentCode], c.Record[roster.FieldStudentName]
			wantValid := code != "" && name != ""
			if c.Validation.IsValid != wantValid {
				t.Errorf("row %d: IsValid = %v; want %v", c.Row, c.Validation.IsValid, wantValid)
			}
			if c.Validation.IsValid != (len(c.Validation.Errors) == 0) {
				t.Errorf("row %d: IsValid = %v with errors %v", c.Row, c.Validation.IsValid, c.Validation.Errors)
			}
		}
	})
}

func TestExtractor_Validate(t *testing.T) {
	ext := newExtractor()
	res := ext.Validate(roster.Record{})
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{"رمز الطالب مطلوب", "اسم الطالب مطلوب"}, res.Errors)

	res = ext.Validate(roster.Record{roster.FieldStudentCode: " x ", roster.FieldStudentName: "y"})
	assert.True(t, res.IsValid)
}
