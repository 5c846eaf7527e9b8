package record

import (
	"errors"
	"fmt"
	"sort"
)

const (
	AttrTerm         = "term"
	AttrCourseName   = "course_name"
	AttrCourseId     = "course_id"
	AttrCourseCredit = "course_credit"
	AttrMidScore     = "mid_score"
	AttrEndScore     = "end_score"
	AttrCourseWeight = "course_weight"
	AttrClassId      = "class_id"
)

// GradeColumns is the column layout of the grades spreadsheet.
var GradeColumns = map[string]int{
	AttrTerm:         0,
	AttrCourseName:   1,
	AttrCourseId:     2,
	AttrCourseCredit: 3,
	AttrMidScore:     4,
	AttrEndScore:     5,
	AttrCourseWeight: 6,
}

var ErrUnknownAttribute = errors.New("unknown attribute")

// Record is a positional row of string fields. A record may be shorter
// than its schema, missing trailing fields read as empty strings.
type Record []string

// Item is an attribute name -> value mapping, either freshly scraped or
// materialized from a Record.
type Item map[string]string

// Schema maps attribute names to zero-based column positions. It is
// immutable after construction.
type Schema struct {
	columns map[string]int
	names   []string
	width   int
}

// NewSchema copies columns into a new Schema. Two attributes may not share
// a position.
func NewSchema(columns map[string]int) (Schema, error) {
	if len(columns) == 0 {
		return Schema{}, fmt.Errorf("schema has no columns")
	}

	copied := make(map[string]int, len(columns))
	taken := make(map[int]string, len(columns))
	width := 0
	for name, pos := range columns {
		if name == "" {
			return Schema{}, fmt.Errorf("schema has an unnamed column at %d", pos)
		}
		if pos < 0 {
			return Schema{}, fmt.Errorf("column %q has negative position %d", name, pos)
		}
		if other, ok := taken[pos]; ok {
			return Schema{}, fmt.Errorf("columns %q and %q share position %d", other, name, pos)
		}
		taken[pos] = name
		copied[name] = pos
		if pos+1 > width {
			width = pos + 1
		}
	}

	names := make([]string, 0, len(copied))
	for name := range copied {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return copied[names[i]] < copied[names[j]]
	})

	return Schema{columns: copied, names: names, width: width}, nil
}

// MustSchema is NewSchema but it panics on an invalid layout.
func MustSchema(columns map[string]int) Schema {
	s, err := NewSchema(columns)
	if err != nil {
		panic(err)
	}
	return s
}

// Width is the number of columns a full record spans.
func (s Schema) Width() int {
	return s.width
}

// Names returns the attribute names ordered by column position.
func (s Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Position returns the column of an attribute.
func (s Schema) Position(attr string) (int, bool) {
	pos, ok := s.columns[attr]
	return pos, ok
}

// Get returns the field for attr, or "" when the record is too short or the
// attribute is not part of the schema.
func (s Schema) Get(r Record, attr string) string {
	pos, ok := s.columns[attr]
	if !ok || pos >= len(r) {
		return ""
	}
	return r[pos]
}

// Set writes value into the record and reports whether the stored value
// changed. An empty value never touches the record.
func (s Schema) Set(r *Record, attr, value string) (bool, error) {
	pos, ok := s.columns[attr]
	if !ok {
		return false, fmt.Errorf("set %q: %w", attr, ErrUnknownAttribute)
	}
	if value == "" {
		return false, nil
	}

	for len(*r) < pos+1 {
		*r = append(*r, "")
	}
	old := (*r)[pos]
	(*r)[pos] = value
	return old != value, nil
}

// ToItem converts a record into an Item holding every schema attribute.
func (s Schema) ToItem(r Record) Item {
	item := make(Item, len(s.columns))
	for name := range s.columns {
		item[name] = s.Get(r, name)
	}
	return item
}
