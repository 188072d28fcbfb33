package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTradeOrg(t *testing.T) {
	rec := TradeRecord{
		TradeID:    "01J0000000000000000000ABCD",
		Instrument: "TEST",
		Side:       "LONG",
		Quantity:   10,
		EntryPrice: 100,
		ExitPrice:  102.5,
		OpenTime:   time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		CloseTime:  time.Date(2026, 3, 2, 9, 30, 2, 0, time.UTC),
		RealizedPL: 25,
		Reason:     "target",
	}

	want := `** LONG TEST (0000ABCD)
:PROPERTIES:
:TRADE_ID: 01J0000000000000000000ABCD
:INSTRUMENT: TEST
:SIDE: LONG
:QUANTITY: 10
:ENTRY_PRICE: 100.00
:EXIT_PRICE: 102.50
:OPEN_TIME: 2026-03-02T09:30:00Z
:CLOSE_TIME: 2026-03-02T09:30:02Z
:REALIZED_PL: 25.00
:REASON: target
:END:

*** Notes
- 
`
	assert.Equal(t, want, FormatTradeOrg(rec))
}

func TestFormatTradesOrg(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, "", FormatTradesOrg(nil))

	one := FormatTradesOrg([]TradeRecord{sampleTrade("T1", at, 5)})
	assert.NotContains(t, one, "| trades |")

	many := FormatTradesOrg([]TradeRecord{sampleTrade("T1", at, 30), sampleTrade("T2", at, -10)})
	assert.Equal(t, 2, strings.Count(many, ":PROPERTIES:"))
	assert.Contains(t, many, "| 2 | 1 | 1 | 20.00 | 3.00 |")
}
