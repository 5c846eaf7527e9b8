package reconcile

import (
	"gradewatch/internal/record"
)

// Index groups records by the value of one attribute, keeping stored order
// within each group.
type Index struct {
	schema  record.Schema
	attr    string
	buckets map[string][]*record.Record
	keys    []string
}

// NewIndex indexes records by attr.
func NewIndex(schema record.Schema, attr string, records []*record.Record) *Index {
	idx := &Index{
		schema:  schema,
		attr:    attr,
		buckets: make(map[string][]*record.Record),
	}
	for _, r := range records {
		idx.Add(r)
	}
	return idx
}

// Attr is the attribute the index is keyed by.
func (i *Index) Attr() string {
	return i.attr
}

// Add indexes a record under its current key.
func (i *Index) Add(r *record.Record) {
	key := i.schema.Get(*r, i.attr)
	if _, ok := i.buckets[key]; !ok {
		i.keys = append(i.keys, key)
	}
	i.buckets[key] = append(i.buckets[key], r)
}

// Lookup returns every record whose key equals key, in the order they were added.
func (i *Index) Lookup(key string) []*record.Record {
	return i.buckets[key]
}

// Keys returns the distinct non-empty keys in first-seen order.
func (i *Index) Keys() []string {
	out := make([]string, 0, len(i.keys))
	for _, k := range i.keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
