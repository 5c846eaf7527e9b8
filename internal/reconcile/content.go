package reconcile

import (
	"fmt"
	"gradewatch/internal/record"
	"slices"
)

// ContentItem is one entry of the course content listing.
type ContentItem struct {
	Id     string
	Header string
	Url    string
}

// Item converts the entry into the attribute mapping handed to notifiers.
func (c ContentItem) Item() record.Item {
	return record.Item{
		"id":     c.Id,
		"header": c.Header,
		"url":    c.Url,
	}
}

type ContentResult struct {
	// New holds the scraped items whose id was not seen before, in scrape order.
	New []ContentItem
	// Ids is the id list to persist, in scrape order without duplicates.
	Ids []string
	// Changed reports whether Ids differs from the previously stored list.
	Changed bool
}

// Content diffs the scraped listing against the previously seen ids.
func Content(previous []string, scraped []ContentItem) (ContentResult, error) {
	seen := make(map[string]struct{}, len(previous))
	for _, id := range previous {
		seen[id] = struct{}{}
	}

	var result ContentResult
	current := make(map[string]struct{}, len(scraped))
	for i, item := range scraped {
		if item.Id == "" {
			return ContentResult{}, fmt.Errorf("content item %d: id: %w", i, ErrMissingKey)
		}
		if _, dup := current[item.Id]; dup {
			continue
		}
		current[item.Id] = struct{}{}
		result.Ids = append(result.Ids, item.Id)

		if _, ok := seen[item.Id]; !ok {
			result.New = append(result.New, item)
		}
	}
	result.Changed = !slices.Equal(previous, result.Ids)
	return result, nil
}
