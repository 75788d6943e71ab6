package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPeriodWindowMonths(t *testing.T) {
	all := Window{Mode: ModePeriod, Year: 2025, Month: MonthAll}
	months := all.Months()
	require.Len(t, months, 12)
	assert.Equal(t, YearMonth{Year: 2025, Month: 1}, months[0])
	assert.Equal(t, YearMonth{Year: 2025, Month: 12}, months[11])

	single := Window{Mode: ModePeriod, Year: 2025, Month: 6}
	assert.Equal(t, []YearMonth{{Year: 2025, Month: 6}}, single.Months())
	start, end := single.DateRange()
	assert.Equal(t, day("2025-06-01"), start)
	assert.Equal(t, day("2025-06-30"), end)
}

func TestCustomWindowSpansPartialMonths(t *testing.T) {
	w := Window{Mode: ModeCustom, Start: day("2024-11-20"), End: day("2025-02-03")}
	assert.Equal(t, []YearMonth{
		{Year: 2024, Month: 11},
		{Year: 2024, Month: 12},
		{Year: 2025, Month: 1},
		{Year: 2025, Month: 2},
	}, w.Months())
	assert.Equal(t, []int{2024, 2025}, w.Years())
	assert.Equal(t, "2024-11", w.Months()[0].String())
}

func TestCustomWindowSingleDay(t *testing.T) {
	w := Window{Mode: ModeCustom, Start: day("2025-03-31"), End: day("2025-03-31")}
	assert.Equal(t, []YearMonth{{Year: 2025, Month: 3}}, w.Months())
	start, end := w.DateRange()
	assert.Equal(t, start, end)
}

func TestWindowValidate(t *testing.T) {
	cases := []struct {
		name string
		w    Window
		ok   bool
	}{
		{"period", Window{Mode: ModePeriod, Year: 2025}, true},
		{"bad year", Window{Mode: ModePeriod, Year: 99}, false},
		{"bad month", Window{Mode: ModePeriod, Year: 2025, Month: 13}, false},
		{"reversed", Window{Mode: ModeCustom, Start: day("2025-02-01"), End: day("2025-01-01")}, false},
		{"missing end", Window{Mode: ModeCustom, Start: day("2025-02-01")}, false},
		{"unknown mode", Window{Mode: "WEEK", Year: 2025}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.w.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			status, _ := StatusOf(err)
			assert.Equal(t, 400, status)
		})
	}
}

func TestParseWindowDefaults(t *testing.T) {
	now := day("2026-04-15")
	w, err := ParseWindow("", "", "ALL", "", "", now)
	require.NoError(t, err)
	assert.Equal(t, Window{Mode: ModePeriod, Year: 2026, Month: MonthAll}, w)

	w, err = ParseWindow("period", "2024", "7", "", "", now)
	require.NoError(t, err)
	assert.Equal(t, 2024, w.Year)
	assert.Equal(t, 7, w.Month)

	w, err = ParseWindow("custom", "", "", "2025-01-10", "2025-03-05", now)
	require.NoError(t, err)
	assert.Equal(t, ModeCustom, w.Mode)
	assert.Len(t, w.Months(), 3)

	_, err = ParseWindow("custom", "", "", "2025-01-10", "soon", now)
	assert.Error(t, err)
	_, err = ParseWindow("period", "twenty", "", "", "", now)
	assert.Error(t, err)
}
