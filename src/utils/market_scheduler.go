package utils

import (
	"context"
	"sync"
	"time"

	"symbollist-observer/src/logger"
)

// MarketScheduler fires its hooks once per trading day, on the first check
// that finds the market open.
type MarketScheduler struct {
	Calendar *TradingCalendar
	Interval time.Duration
	Logger   *logger.Logger

	mu      sync.Mutex
	lastDay string
	hooks   []func(day string)
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(mic string, interval time.Duration, l *logger.Logger) *MarketScheduler {
	cal := GetCalendar(mic)
	if cal.Fallback {
		l.Warning("MarketScheduler: no calendar for MIC '%s', using Mon-Fri 09:30-16:00 New York", mic)
	} else {
		l.Info("MarketScheduler: using %s calendar (%s)", cal.MIC, cal.Timezone)
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &MarketScheduler{
		Calendar: cal,
		Interval: interval,
		Logger:   l,
	}
}

// OnMarketOpen registers fn to run at each session start.
func (ms *MarketScheduler) OnMarketOpen(fn func(day string)) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.hooks = append(ms.hooks, fn)
}

// MarkDay records day as already handled. Used at startup so that the images
// requested on boot are not immediately requested again.
func (ms *MarketScheduler) MarkDay(now time.Time) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.Calendar.IsOpenOnMinute(now) {
		ms.lastDay = ms.Calendar.SessionDay(now)
	}
}

// -----------------------------------------------------------------------------

// Check runs the hooks if the market is open on a day not yet handled. It
// reports whether they ran.
func (ms *MarketScheduler) Check(now time.Time) bool {
	if !ms.Calendar.IsOpenOnMinute(now) {
		return false
	}

	day := ms.Calendar.SessionDay(now)
	ms.mu.Lock()
	if day == ms.lastDay {
		ms.mu.Unlock()
		return false
	}
	ms.lastDay = day
	hooks := append([]func(string){}, ms.hooks...)
	ms.mu.Unlock()

	ms.Logger.Info("MarketScheduler: %s open for session %s", ms.Calendar.MIC, day)
	for _, fn := range hooks {
		fn(day)
	}
	return true
}

// -----------------------------------------------------------------------------

// Run checks the calendar every Interval until ctx is cancelled.
func (ms *MarketScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(ms.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			ms.Check(now)
		}
	}
}
