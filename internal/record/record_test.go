package record

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNewSchema(t *testing.T) {
	_, err := NewSchema(map[string]int{"a": 0, "b": 0})
	require.Error(t, err)

	_, err = NewSchema(map[string]int{"a": -1})
	require.Error(t, err)

	_, err = NewSchema(nil)
	require.Error(t, err)

	s := MustSchema(GradeColumns)
	require.Equal(t, 7, s.Width())
	require.Equal(t, []string{
		AttrTerm,
		AttrCourseName,
		AttrCourseId,
		AttrCourseCredit,
		AttrMidScore,
		AttrEndScore,
		AttrCourseWeight,
	}, s.Names())
}

func TestSchemaIsACopy(t *testing.T) {
	columns := map[string]int{"a": 0, "b": 1}
	s := MustSchema(columns)
	columns["a"] = 5

	pos, ok := s.Position("a")
	require.True(t, ok)
	require.Equal(t, 0, pos)
}

func TestGet(t *testing.T) {
	s := MustSchema(GradeColumns)

	r := Record{"1", "Algebra"}
	require.Equal(t, "1", s.Get(r, AttrTerm))
	require.Equal(t, "Algebra", s.Get(r, AttrCourseName))
	require.Equal(t, "", s.Get(r, AttrCourseWeight))
	require.Equal(t, "", s.Get(r, "not_an_attribute"))
	require.Equal(t, "", s.Get(nil, AttrTerm))
}

func TestSet(t *testing.T) {
	s := MustSchema(GradeColumns)

	cases := []struct {
		name          string
		record        Record
		attr          string
		value         string
		expectChanged bool
		expectRecord  Record
	}{
		{
			name:          "empty value leaves record alone",
			record:        Record{"1"},
			attr:          AttrMidScore,
			value:         "",
			expectChanged: false,
			expectRecord:  Record{"1"},
		},
		{
			name:          "pads short record",
			record:        Record{"1"},
			attr:          AttrMidScore,
			value:         "8.0",
			expectChanged: true,
			expectRecord:  Record{"1", "", "", "", "8.0"},
		},
		{
			name:          "same value is not a change",
			record:        Record{"1", "Algebra"},
			attr:          AttrCourseName,
			value:         "Algebra",
			expectChanged: false,
			expectRecord:  Record{"1", "Algebra"},
		},
		{
			name:          "overwrite",
			record:        Record{"1", "Algebra", "C1", "3", "7.5"},
			attr:          AttrMidScore,
			value:         "8.0",
			expectChanged: true,
			expectRecord:  Record{"1", "Algebra", "C1", "3", "8.0"},
		},
		{
			name:          "never shrinks",
			record:        Record{"1", "Algebra", "C1", "3", "", "", "", "extra"},
			attr:          AttrTerm,
			value:         "2",
			expectChanged: true,
			expectRecord:  Record{"2", "Algebra", "C1", "3", "", "", "", "extra"},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			r := test.record
			changed, err := s.Set(&r, test.attr, test.value)
			require.NoError(t, err)
			require.Equal(t, test.expectChanged, changed)
			if diff := cmp.Diff(test.expectRecord, r); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestSetUnknownAttribute(t *testing.T) {
	s := MustSchema(GradeColumns)
	r := Record{}
	_, err := s.Set(&r, "nope", "x")
	require.ErrorIs(t, err, ErrUnknownAttribute)
	require.Len(t, r, 0)
}

func TestToItem(t *testing.T) {
	s := MustSchema(GradeColumns)
	item := s.ToItem(Record{"1", "Algebra", "C1"})
	expected := Item{
		AttrTerm:         "1",
		AttrCourseName:   "Algebra",
		AttrCourseId:     "C1",
		AttrCourseCredit: "",
		AttrMidScore:     "",
		AttrEndScore:     "",
		AttrCourseWeight: "",
	}
	if diff := cmp.Diff(expected, item); diff != "" {
		t.Fatal(diff)
	}
}
