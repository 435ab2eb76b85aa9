package sam

import (
	_ "embed"
	"errors"
	"testing"
	"time"

	"samtimesheet/internal/components/store"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/timesheet.html
var timesheetHtml string

//go:embed testdata/current_day.html
var currentDayHtml string

//go:embed testdata/empty.html
var emptyHtml string

//go:embed testdata/malformed.html
var malformedHtml string

func amsterdam(t testing.TB) *time.Location {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Fatal(err)
	}
	return loc
}

func TestParseTimesheet(t *testing.T) {
	loc := amsterdam(t)

	shifts, err := ParseTimesheet(timesheetHtml, loc)
	if err != nil {
		t.Fatal(err)
	}

	expect := []store.Shift{
		{
			Start: time.Date(2024, time.March, 14, 9, 0, 0, 0, loc),
			End:   time.Date(2024, time.March, 14, 17, 0, 0, 0, loc),
		},
		{
			Start: time.Date(2024, time.March, 15, 10, 0, 0, 0, loc),
			End:   time.Date(2024, time.March, 15, 18, 30, 0, 0, loc),
		},
	}
	if diff := cmp.Diff(expect, shifts); diff != "" {
		t.Fatalf("unexpected shifts (-want +got):\n%s", diff)
	}
}

func TestParseTimesheetSkipsCurrentDayOverlay(t *testing.T) {
	loc := amsterdam(t)

	shifts, err := ParseTimesheet(currentDayHtml, loc)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, shifts, 1)
	require.True(t, shifts[0].Start.Equal(time.Date(2024, time.March, 15, 10, 0, 0, 0, loc)))
}

func TestParseTimesheetEmpty(t *testing.T) {
	for _, html := range []string{emptyHtml, "", "<html><body>nothing here</body></html>"} {
		shifts, err := ParseTimesheet(html, time.UTC)
		require.NoError(t, err)
		require.NotNil(t, shifts)
		require.Empty(t, shifts)
	}
}

func TestParseTimesheetMalformed(t *testing.T) {
	cases := []struct {
		name string
		html string
	}{
		{name: "missing end", html: malformedHtml},
		{
			name: "no times",
			html: `<table><tr><td class="calendarCellRegularPast">
				<table title="Details van 14-03-2024"><tr><td></td></tr></table>
			</td></tr></table>`,
		},
		{
			name: "invalid time",
			html: `<table><tr><td class="calendarCellRegularPast">
				<table title="Details van 14-03-2024"><tr><td><p><span>9h</span></p><p><span>17:00</span></p></td></tr></table>
			</td></tr></table>`,
		},
		{
			name: "invalid date",
			html: `<table><tr><td class="calendarCellRegularPast">
				<table title="Details van morgen"><tr><td><p><span>09:00</span></p><p><span>17:00</span></p></td></tr></table>
			</td></tr></table>`,
		},
		{
			name: "no title",
			html: `<table><tr><td class="calendarCellRegularPast">
				<table><tr><td><p><span>09:00</span></p><p><span>17:00</span></p></td></tr></table>
			</td></tr></table>`,
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseTimesheet(test.html, time.UTC)
			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr), "expected a ParseError, got %v", err)
		})
	}
}

func TestParseTimesheetVariants(t *testing.T) {
	html := `<table><tr>
		<td class="calendarCellRegularPast" title="4-3-2024">
			<table><tr><td>
				<p><span>07:00</span></p><p><span>11:00</span></p>
				<p><span>&nbsp;15:00:30 </span></p><p><span>19:15</span></p>
			</td></tr></table>
		</td>
	</tr></table>`

	shifts, err := ParseTimesheet(html, time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	expect := []store.Shift{
		{
			Start: time.Date(2024, time.March, 4, 7, 0, 0, 0, time.UTC),
			End:   time.Date(2024, time.March, 4, 11, 0, 0, 0, time.UTC),
		},
		{
			Start: time.Date(2024, time.March, 4, 15, 0, 30, 0, time.UTC),
			End:   time.Date(2024, time.March, 4, 19, 15, 0, 0, time.UTC),
		},
	}
	if diff := cmp.Diff(expect, shifts); diff != "" {
		t.Fatalf("unexpected shifts (-want +got):\n%s", diff)
	}
}

func TestDateFromTitle(t *testing.T) {
	cases := []struct {
		title  string
		expect string
	}{
		{title: "Details van 14-03-2024", expect: "14-03-2024"},
		{title: "14-03-2024", expect: "14-03-2024"},
		{title: "  Details van   4-3-2024 ", expect: "4-3-2024"},
		{title: "", expect: ""},
	}

	for _, test := range cases {
		require.Equal(t, test.expect, DateFromTitle(test.title), test.title)
	}
}
