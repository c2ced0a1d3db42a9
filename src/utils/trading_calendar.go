package utils

import (
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar calculates trading days using scmhub/calendar.
type TradingCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// ricExchanges maps RIC exchange suffixes to ISO 10383 MICs.
var ricExchanges = map[string]string{
	"N":  "xnys",
	"O":  "xnas",
	"OQ": "xnas",
	"L":  "xlon",
	"PA": "xpar",
	"DE": "xetr",
	"AS": "xams",
	"BR": "xbru",
	"MI": "xmil",
	"MC": "xmad",
	"ST": "xsto",
	"CO": "xcse",
	"HE": "xhel",
	"VI": "xwbo",
	"S":  "xswx",
	"TO": "xtse",
	"T":  "xtks",
	"HK": "xhkg",
	"AX": "xasx",
	"KS": "xkrx",
	"TW": "xtai",
	"SS": "xshg",
	"SZ": "xshe",
}

// MICForRIC returns the market of a RIC such as "VOD.L", or fallback when the
// suffix is unknown or missing.
func MICForRIC(ric, fallback string) string {
	i := strings.LastIndexByte(ric, '.')
	if i < 0 || i == len(ric)-1 {
		return fallback
	}
	if mic, ok := ricExchanges[strings.ToUpper(ric[i+1:])]; ok {
		return mic
	}
	return fallback
}

// -----------------------------------------------------------------------------

// GetCalendar loads the calendar of a MIC. Unknown MICs fall back to xnys and,
// failing that, to a Mon-Fri 09:30-16:00 New York session.
func GetCalendar(mic string) *TradingCalendar {
	mic = strings.ToLower(mic)
	cal := calendar.GetCalendar(mic)
	if cal == nil {
		mic = "xnys"
		cal = calendar.GetCalendar(mic)
	}

	if cal == nil {
		nyLoc, _ := time.LoadLocation("America/New_York")
		if nyLoc == nil {
			nyLoc = time.UTC
		}
		return &TradingCalendar{MIC: mic, Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{MIC: mic, Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}
		hour, minute := t.Hour(), t.Minute()
		return (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16
	}

	return tc.Calendar.IsOpen(t)
}

// -----------------------------------------------------------------------------

// SessionDay returns the exchange-local date of t as YYYY-MM-DD.
func (tc *TradingCalendar) SessionDay(t time.Time) string {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}
	return t.Format(time.DateOnly)
}
