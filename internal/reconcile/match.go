package reconcile

import (
	"errors"
	"fmt"
	"gradewatch/internal/record"
	"strconv"
	"strings"
)

var (
	// ErrMissingKey means a scraped item lacks the attribute its feed is matched by.
	ErrMissingKey = errors.New("item is missing its key attribute")
	// ErrInvalidTerm means a stored term could not be compared numerically.
	ErrInvalidTerm = errors.New("term is not a non-negative integer")
)

// MatchExact finds the first record sharing the item's course id whose term
// is string-equal to the item's term. A nil record without error means no
// record matched. Both halves of the key must be present on the item.
func MatchExact(schema record.Schema, idx *Index, item record.Item) (*record.Record, error) {
	courseId := item[record.AttrCourseId]
	if courseId == "" {
		return nil, fmt.Errorf("%s: %w", record.AttrCourseId, ErrMissingKey)
	}
	term := item[record.AttrTerm]
	if term == "" {
		return nil, fmt.Errorf("course %q: %s: %w", courseId, record.AttrTerm, ErrMissingKey)
	}

	for _, candidate := range idx.Lookup(courseId) {
		if schema.Get(*candidate, record.AttrTerm) == term {
			return candidate, nil
		}
	}
	return nil, nil
}

// MatchBestTerm finds, among the records sharing the item's course name, the
// one with the numerically largest term. Among equal maxima the first in
// index order wins. A record without a term ranks 0, the same as term "0",
// so both stay eligible and lose to any positive term.
func MatchBestTerm(schema record.Schema, idx *Index, item record.Item) (*record.Record, error) {
	courseName := item[record.AttrCourseName]
	if courseName == "" {
		return nil, fmt.Errorf("%s: %w", record.AttrCourseName, ErrMissingKey)
	}

	var best *record.Record
	bestRank := -1
	for _, candidate := range idx.Lookup(courseName) {
		rank, err := termRank(schema.Get(*candidate, record.AttrTerm))
		if err != nil {
			return nil, fmt.Errorf("course %q: %w", courseName, err)
		}
		if rank > bestRank {
			best = candidate
			bestRank = rank
		}
	}
	return best, nil
}

func termRank(term string) (int, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(term)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%q: %w", term, ErrInvalidTerm)
	}
	return n, nil
}
