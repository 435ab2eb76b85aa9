package sam

import (
	"fmt"
	"samtimesheet/internal/components/store"
	"samtimesheet/pkg/htmlutil"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const titlePrefix = "Details van "

// portal dates are day-month-year without zero padding, ex. "4-3-2024"
var timeLayouts = []string{
	"2-1-2006 15:04",
	"2-1-2006 15:04:05",
}

// DateFromTitle strips the "Details van " prefix from a calendar entry's
// title, a title without the prefix is returned as is.
func DateFromTitle(title string) string {
	return strings.TrimPrefix(htmlutil.NormalizeText(title), titlePrefix)
}

// ParseTimesheet extracts the shifts shown on a timesheet month page in
// document order, times are read in loc.
//
// The cell highlighting the current day is skipped when it carries the
// data overlay, otherwise the same shift would be reported twice.
func ParseTimesheet(html string, loc *time.Location) ([]store.Shift, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ParseError{Reason: "read html", Err: err}
	}

	cells := doc.Find("td[class*=calendarCellRegular]").
		FilterFunction(func(_ int, cell *goquery.Selection) bool {
			current := cell.HasClass("calendarCellRegularCurrent")
			return !current || cell.Find(".calCellData").Length() == 0
		})

	shifts := []store.Shift{}
	var parseErr error
	cells.EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		cell.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
			parsed, err := parseEntry(cell, table, loc)
			if err != nil {
				parseErr = err
				return false
			}
			shifts = append(shifts, parsed...)
			return true
		})
		return parseErr == nil
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return shifts, nil
}

// parseEntry reads the shifts of a single calendar entry, the times are
// listed as start/end pairs.
func parseEntry(cell, table *goquery.Selection, loc *time.Location) ([]store.Shift, error) {
	title, ok := table.Attr("title")
	if !ok {
		title = cell.AttrOr("title", "")
	}
	date := DateFromTitle(title)
	if date == "" {
		return nil, &ParseError{Reason: "calendar entry has no date"}
	}

	var times []string
	table.Find("p span").Each(func(_ int, span *goquery.Selection) {
		text := htmlutil.NormalizeText(htmlutil.GetText(span.Get(0)))
		if text != "" {
			times = append(times, text)
		}
	})
	if len(times) == 0 || len(times)%2 != 0 {
		return nil, &ParseError{
			Reason: fmt.Sprintf("expected start and end times, got %d values", len(times)),
			Text:   date,
		}
	}

	shifts := make([]store.Shift, 0, len(times)/2)
	for i := 0; i < len(times); i += 2 {
		start, err := parseDateTime(date, times[i], loc)
		if err != nil {
			return nil, err
		}
		end, err := parseDateTime(date, times[i+1], loc)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, store.Shift{Start: start, End: end})
	}
	return shifts, nil
}

func parseDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	text := date + " " + clock
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, text, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, &ParseError{Reason: "invalid date or time", Text: text, Err: lastErr}
}
