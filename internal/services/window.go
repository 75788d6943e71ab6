package services

import (
	"strconv"
	"strings"
	"time"
)

type WindowMode string

const (
	ModePeriod WindowMode = "PERIOD"
	ModeCustom WindowMode = "CUSTOM"
)

// MonthAll selects every month of Year in PERIOD mode.
const MonthAll = 0

const dateLayout = "2006-01-02"

// Window is a reporting time window. PERIOD uses Year and Month; CUSTOM
// uses the inclusive calendar dates Start and End.
type Window struct {
	Mode  WindowMode `json:"mode"`
	Year  int        `json:"year"`
	Month int        `json:"month"`
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`
}

type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (ym YearMonth) First() time.Time {
	return time.Date(ym.Year, time.Month(ym.Month), 1, 0, 0, 0, 0, time.UTC)
}

func (ym YearMonth) String() string {
	return ym.First().Format("2006-01")
}

func (w Window) Validate() error {
	switch w.Mode {
	case ModePeriod:
		if w.Year < 2000 || w.Year > 9999 {
			return ErrBadRequest("Invalid year")
		}
		if w.Month < MonthAll || w.Month > 12 {
			return ErrBadRequest("Invalid month")
		}
	case ModeCustom:
		if w.Start.IsZero() || w.End.IsZero() {
			return ErrBadRequest("Start and end dates are required")
		}
		if dateOnly(w.Start).After(dateOnly(w.End)) {
			return ErrBadRequest("Start date must not be after end date")
		}
	default:
		return ErrBadRequest("Invalid window mode")
	}
	return nil
}

// Months lists the calendar months the window covers, in order. CUSTOM walks
// from the first of the start month while the month's first day is on or
// before End.
func (w Window) Months() []YearMonth {
	switch w.Mode {
	case ModePeriod:
		if w.Month != MonthAll {
			return []YearMonth{{Year: w.Year, Month: w.Month}}
		}
		months := make([]YearMonth, 0, 12)
		for m := 1; m <= 12; m++ {
			months = append(months, YearMonth{Year: w.Year, Month: m})
		}
		return months
	case ModeCustom:
		end := dateOnly(w.End)
		months := []YearMonth{}
		for cur := firstOfMonth(w.Start); !cur.After(end); cur = cur.AddDate(0, 1, 0) {
			months = append(months, YearMonth{Year: cur.Year(), Month: int(cur.Month())})
		}
		return months
	}
	return nil
}

// Years lists the distinct years touched by Months.
func (w Window) Years() []int {
	years := []int{}
	for _, ym := range w.Months() {
		if len(years) == 0 || years[len(years)-1] != ym.Year {
			years = append(years, ym.Year)
		}
	}
	return years
}

// DateRange is the inclusive first and last calendar day of the window.
func (w Window) DateRange() (time.Time, time.Time) {
	switch w.Mode {
	case ModeCustom:
		return dateOnly(w.Start), dateOnly(w.End)
	case ModePeriod:
		if w.Month == MonthAll {
			return time.Date(w.Year, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(w.Year, 12, 31, 0, 0, 0, 0, time.UTC)
		}
		first := YearMonth{Year: w.Year, Month: w.Month}.First()
		return first, first.AddDate(0, 1, -1)
	}
	return time.Time{}, time.Time{}
}

// ParseWindow reads a window from query values. An empty mode means PERIOD;
// an empty year means the year of now; month "ALL" or "" means MonthAll.
func ParseWindow(mode, year, month, start, end string, now time.Time) (Window, error) {
	w := Window{Mode: WindowMode(strings.ToUpper(strings.TrimSpace(mode)))}
	if w.Mode == "" {
		w.Mode = ModePeriod
	}
	switch w.Mode {
	case ModePeriod:
		w.Year = now.Year()
		if strings.TrimSpace(year) != "" {
			parsed, err := strconv.Atoi(strings.TrimSpace(year))
			if err != nil {
				return Window{}, ErrBadRequest("Invalid year")
			}
			w.Year = parsed
		}
		month = strings.ToUpper(strings.TrimSpace(month))
		if month != "" && month != "ALL" {
			parsed, err := strconv.Atoi(month)
			if err != nil {
				return Window{}, ErrBadRequest("Invalid month")
			}
			w.Month = parsed
		}
	case ModeCustom:
		var err error
		if w.Start, err = time.Parse(dateLayout, strings.TrimSpace(start)); err != nil {
			return Window{}, ErrBadRequest("Invalid start date")
		}
		if w.End, err = time.Parse(dateLayout, strings.TrimSpace(end)); err != nil {
			return Window{}, ErrBadRequest("Invalid end date")
		}
	}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
