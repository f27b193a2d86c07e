package utils

import (
	"sync"
	"time"

	"telemetry-hub/src/logger"
)

// MarketScheduler decides whether a symbol's market is currently in session.
// Symbols without a calendar (crypto pairs) are always in session.
type MarketScheduler struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(symbols []string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
	}
	ms.MapSymbolsToCalendars(symbols)
	return ms
}

// -----------------------------------------------------------------------------

// MapSymbolsToCalendars rebuilds the symbol -> calendar mapping.
func (ms *MarketScheduler) MapSymbolsToCalendars(symbols []string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.Calendars = make(map[string]*TradingCalendar)

	sessionBound := 0
	for _, symbol := range symbols {
		cal := GetCalendar(symbol)
		ms.Calendars[symbol] = cal // nil entry = 24/7
		if cal != nil {
			sessionBound++
		}
	}

	ms.Logger.Info("MarketScheduler: %d symbols mapped, %d session-bound", len(symbols), sessionBound)
}

// UpdateSymbols updates the scheduler with a new list of symbols
func (ms *MarketScheduler) UpdateSymbols(symbols []string) {
	ms.MapSymbolsToCalendars(symbols)
}

// -----------------------------------------------------------------------------

// IsSymbolOpen reports whether the symbol's market is open right now.
// Unknown symbols are treated as open.
func (ms *MarketScheduler) IsSymbolOpen(symbol string) bool {
	ms.mu.RLock()
	cal, ok := ms.Calendars[symbol]
	ms.mu.RUnlock()

	if !ok || cal == nil {
		return true
	}
	return cal.IsOpenOnMinute(time.Now().UTC())
}

// -----------------------------------------------------------------------------

// AnyMarketOpen checks if ANY tracked market is currently open.
func (ms *MarketScheduler) AnyMarketOpen() bool {
	now := time.Now().UTC()

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, cal := range ms.Calendars {
		if cal == nil || cal.IsOpenOnMinute(now) {
			return true
		}
	}
	return false
}
