package utils

import (
	"testing"
	"time"

	"symbollist-observer/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func fallbackScheduler(t *testing.T) *MarketScheduler {
	ms := NewMarketScheduler("xnys", time.Minute, logger.NewLogger(nil, "MarketScheduler"))
	// Pin the weekday rules so the test does not depend on the holiday tables.
	ms.Calendar = &TradingCalendar{MIC: "xnys", Fallback: true, Timezone: newYork(t)}
	return ms
}

func TestMICForRIC(t *testing.T) {
	tests := []struct {
		ric  string
		want string
	}{
		{"IBM.N", "xnys"},
		{"MSFT.O", "xnas"},
		{"VOD.L", "xlon"},
		{"7203.T", "xtks"},
		{"0#.SPX", "xnys"},
		{"NOSUFFIX", "xnys"},
		{"TRAILING.", "xnys"},
		{"ABC.ZZ", "xnys"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MICForRIC(tt.ric, "xnys"), tt.ric)
	}
}

func TestFallbackSessionHours(t *testing.T) {
	loc := newYork(t)
	cal := &TradingCalendar{Fallback: true, Timezone: loc}

	// 2025-03-05 is a Wednesday.
	assert.False(t, cal.IsOpenOnMinute(time.Date(2025, 3, 5, 9, 29, 0, 0, loc)))
	assert.True(t, cal.IsOpenOnMinute(time.Date(2025, 3, 5, 9, 30, 0, 0, loc)))
	assert.True(t, cal.IsOpenOnMinute(time.Date(2025, 3, 5, 15, 59, 0, 0, loc)))
	assert.False(t, cal.IsOpenOnMinute(time.Date(2025, 3, 5, 16, 0, 0, 0, loc)))
	assert.False(t, cal.IsOpenOnMinute(time.Date(2025, 3, 8, 11, 0, 0, 0, loc)))
	assert.Equal(t, "2025-03-05", cal.SessionDay(time.Date(2025, 3, 6, 1, 0, 0, 0, time.UTC)))
}

func TestSchedulerFiresOncePerSession(t *testing.T) {
	ms := fallbackScheduler(t)
	loc := ms.Calendar.Timezone

	var days []string
	ms.OnMarketOpen(func(day string) { days = append(days, day) })

	assert.False(t, ms.Check(time.Date(2025, 3, 5, 8, 0, 0, 0, loc)))
	assert.True(t, ms.Check(time.Date(2025, 3, 5, 9, 31, 0, 0, loc)))
	assert.False(t, ms.Check(time.Date(2025, 3, 5, 12, 0, 0, 0, loc)))
	assert.False(t, ms.Check(time.Date(2025, 3, 5, 17, 0, 0, 0, loc)))
	assert.True(t, ms.Check(time.Date(2025, 3, 6, 10, 0, 0, 0, loc)))

	require.Len(t, days, 2)
	assert.Equal(t, []string{"2025-03-05", "2025-03-06"}, days)
}

func TestMarkDaySkipsCurrentSession(t *testing.T) {
	ms := fallbackScheduler(t)
	loc := ms.Calendar.Timezone

	fired := 0
	ms.OnMarketOpen(func(string) { fired++ })

	ms.MarkDay(time.Date(2025, 3, 5, 10, 0, 0, 0, loc))
	assert.False(t, ms.Check(time.Date(2025, 3, 5, 10, 1, 0, 0, loc)))
	assert.True(t, ms.Check(time.Date(2025, 3, 6, 10, 1, 0, 0, loc)))
	assert.Equal(t, 1, fired)
}

func TestGetCalendarUnknownMICFallsBack(t *testing.T) {
	cal := GetCalendar("not-a-mic")
	require.NotNil(t, cal)
	assert.Equal(t, "xnys", cal.MIC)
}
