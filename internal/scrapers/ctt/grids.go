package ctt

import (
	"context"
	"errors"
	"fmt"
	"gradewatch/internal/record"
	"gradewatch/lib/htmlutil"
	"gradewatch/lib/restyutil"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrGridNotFound = errors.New("grade grid not found, is the session logged in?")

const (
	marksGrid       = `table[id*="gvCourseMarks"]`
	provisionalGrid = `table[id*="gvClassGrade"]`
)

func cells(row *goquery.Selection, want int) ([]string, error) {
	tds := row.ChildrenFiltered("td")
	if tds.Length() < want {
		return nil, fmt.Errorf("row has %d cells, expected at least %d", tds.Length(), want)
	}
	out := make([]string, tds.Length())
	tds.Each(func(i int, td *goquery.Selection) {
		out[i] = htmlutil.Text(td)
	})
	return out, nil
}

// finalWeight turns the midterm weight shown by the portal into the weight
// of the final exam. The result is formatted the way the store has always
// held it ("0.7", "1.0").
func finalWeight(midWeight string) (string, error) {
	if midWeight == "" {
		return "", nil
	}
	w, err := strconv.ParseFloat(strings.ReplaceAll(midWeight, ",", "."), 64)
	if err != nil {
		return "", fmt.Errorf("midterm weight %q: %w", midWeight, err)
	}
	// rounding drops float noise such as 1 - 0.3 = 0.7000000000000001
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(1-w, 'f', 4, 64), 64)
	out := strconv.FormatFloat(rounded, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out, nil
}

func (c *Client) grid(ctx context.Context, target, table, rows string) (*goquery.Selection, error) {
	page, err := restyutil.GetPage(ctx, c.http, target)
	if err != nil {
		return nil, err
	}
	grid := page.Doc.Find(table)
	if grid.Length() == 0 {
		return nil, ErrGridNotFound
	}
	return grid.Find(rows), nil
}

// FullItems scrapes the course marks grid, the complete record of every
// graded course.
func (c *Client) FullItems(ctx context.Context) ([]record.Item, error) {
	ctx, span := tracer.Start(ctx, "Client.FullItems")
	defer span.End()

	// exact class match, alternate and summary rows carry extra classes
	rows, err := c.grid(ctx, c.config.MarksUrl, marksGrid, `tr[class="dxgvDataRow"]`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch course marks")
		return nil, err
	}

	items := make([]record.Item, 0, rows.Length())
	for i := range rows.Nodes {
		row, err := cells(rows.Eq(i), 7)
		if err != nil {
			span.SetStatus(codes.Error, "unexpected course marks layout")
			return nil, fmt.Errorf("course marks row %d: %w", i, err)
		}
		items = append(items, record.Item{
			record.AttrTerm:         row[0],
			record.AttrCourseId:     row[1],
			record.AttrCourseName:   row[2],
			record.AttrCourseCredit: row[3],
			record.AttrClassId:      row[4],
			record.AttrMidScore:     row[5],
			record.AttrEndScore:     row[6],
		})
	}

	span.SetAttributes(attribute.Int("rows", len(items)))
	c.tel.ReportCount(report_ctt_full_rows, int64(len(items)))
	return items, nil
}

// PartialItems scrapes the provisional grade grid of the running term. Its
// items carry no term or course id.
func (c *Client) PartialItems(ctx context.Context) ([]record.Item, error) {
	ctx, span := tracer.Start(ctx, "Client.PartialItems")
	defer span.End()

	rows, err := c.grid(ctx, c.config.ProvisionalUrl, provisionalGrid, `tr.dxgvDataRow`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch provisional grades")
		return nil, err
	}

	items := make([]record.Item, 0, rows.Length())
	for i := range rows.Nodes {
		row, err := cells(rows.Eq(i), 7)
		if err != nil {
			span.SetStatus(codes.Error, "unexpected provisional grades layout")
			return nil, fmt.Errorf("provisional grades row %d: %w", i, err)
		}
		weight, err := finalWeight(row[3])
		if err != nil {
			span.SetStatus(codes.Error, "unexpected provisional grades layout")
			return nil, fmt.Errorf("provisional grades row %d: %w", i, err)
		}
		items = append(items, record.Item{
			record.AttrClassId:      row[1],
			record.AttrCourseName:   row[2],
			record.AttrCourseWeight: weight,
			record.AttrMidScore:     row[4],
			record.AttrEndScore:     row[6],
		})
	}

	span.SetAttributes(attribute.Int("rows", len(items)))
	c.tel.ReportCount(report_ctt_partial_rows, int64(len(items)))
	return items, nil
}
