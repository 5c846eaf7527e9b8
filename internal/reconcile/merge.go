package reconcile

import (
	"fmt"
	"gradewatch/internal/record"
)

// FeedShape describes one source feed: the attribute its items are matched
// by and the attributes merged from its items.
type FeedShape struct {
	Name   string
	Key    string
	Fields []string
}

// mergedFields is the merge order shared by both grade feeds. course_id is
// not merged, it is only written when a full feed item creates a record.
var mergedFields = []string{
	record.AttrCourseName,
	record.AttrTerm,
	record.AttrCourseCredit,
	record.AttrMidScore,
	record.AttrEndScore,
	record.AttrCourseWeight,
}

var (
	// FullFeed is the official course marks table, keyed by course id + term.
	FullFeed = FeedShape{
		Name:   "full",
		Key:    record.AttrCourseId,
		Fields: mergedFields,
	}
	// PartialFeed is the provisional class grade table, keyed by course name.
	PartialFeed = FeedShape{
		Name:   "partial",
		Key:    record.AttrCourseName,
		Fields: mergedFields,
	}
)

// attrs returns every attribute the shape touches.
func (f FeedShape) attrs() []string {
	return append([]string{f.Key}, f.Fields...)
}

// Merge writes the shape's fields from item onto r and reports whether any
// of them changed. Empty or missing item values leave r untouched.
func Merge(schema record.Schema, shape FeedShape, r *record.Record, item record.Item) (bool, error) {
	changed := false
	for _, field := range shape.Fields {
		fieldChanged, err := schema.Set(r, field, item[field])
		if err != nil {
			return false, fmt.Errorf("merge %s feed: %w", shape.Name, err)
		}
		changed = fieldChanged || changed
	}
	return changed, nil
}
