package chrono

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartOfMonth(t *testing.T) {
	loc, err := time.LoadLocation(DefaultLocation)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		now    time.Time
		expect time.Time
	}{
		{
			now:    time.Date(2024, time.March, 14, 9, 30, 0, 0, loc),
			expect: time.Date(2024, time.March, 1, 0, 0, 0, 0, loc),
		},
		{
			now:    time.Date(2024, time.March, 1, 0, 0, 0, 0, loc),
			expect: time.Date(2024, time.March, 1, 0, 0, 0, 0, loc),
		},
		{
			now:    time.Date(2023, time.December, 31, 23, 59, 59, 0, loc),
			expect: time.Date(2023, time.December, 1, 0, 0, 0, 0, loc),
		},
	}

	for _, test := range cases {
		require.Equal(t, test.expect, StartOfMonth(test.now))
	}
}

func TestFixedTime(t *testing.T) {
	start := time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)
	clock := NewFixedTime(start)
	require.Equal(t, start, clock.Now())

	clock.Advance(time.Hour)
	require.Equal(t, start.Add(time.Hour), clock.Now())

	clock.Set(start)
	require.Equal(t, start, clock.Now())
	require.Equal(t, time.UTC, clock.Location())
}

func TestStandardTime(t *testing.T) {
	clock, err := NewStandardTime("")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, DefaultLocation, clock.Location().String())
	require.Equal(t, DefaultLocation, clock.Now().Location().String())
}
