package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-hub/src/logger"
)

func testLogger() *logger.Logger {
	return logger.NewLogger("ERROR", "test")
}

// -----------------------------------------------------------------------------

func TestCryptoPairsHaveNoCalendar(t *testing.T) {
	assert.Nil(t, GetCalendar("BTC/USD"))
	assert.Nil(t, GetCalendar("ETH/EUR"))
}

func TestEquitySymbolsGetCalendar(t *testing.T) {
	cal := GetCalendar("AAPL")
	require.NotNil(t, cal)
	assert.NotNil(t, cal.Timezone)
}

func TestMicMapping(t *testing.T) {
	assert.Equal(t, "xlon", micForSymbol("VOD.L"))
	assert.Equal(t, "xpar", micForSymbol("AIR.PA"))
	assert.Equal(t, "xtks", micForSymbol("7203.T"))
	assert.Equal(t, "xnys", micForSymbol("AAPL"))
}

// -----------------------------------------------------------------------------

func TestSchedulerCryptoAlwaysOpen(t *testing.T) {
	ms := NewMarketScheduler([]string{"BTC/USD", "AAPL"}, testLogger())

	assert.True(t, ms.IsSymbolOpen("BTC/USD"))
	assert.True(t, ms.AnyMarketOpen(), "a 24/7 symbol keeps the scheduler open")
}

func TestSchedulerUnknownSymbolIsOpen(t *testing.T) {
	ms := NewMarketScheduler([]string{"AAPL"}, testLogger())
	assert.True(t, ms.IsSymbolOpen("NEVER-MAPPED"))
}

func TestSchedulerUpdateSymbols(t *testing.T) {
	ms := NewMarketScheduler([]string{"AAPL"}, testLogger())
	require.Contains(t, ms.Calendars, "AAPL")

	ms.UpdateSymbols([]string{"BTC/USD"})
	assert.NotContains(t, ms.Calendars, "AAPL")
	assert.Contains(t, ms.Calendars, "BTC/USD")
}
