package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/demotrader/id"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block suitable for
// pasting into a trading diary. Facts live in a PROPERTIES drawer so they
// stay searchable; the Notes heading is left for the reader.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** %s %s (%s)\n", t.Side, t.Instrument, id.Short(t.TradeID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":INSTRUMENT: %s\n", t.Instrument)
	fmt.Fprintf(&b, ":SIDE: %s\n", t.Side)
	fmt.Fprintf(&b, ":QUANTITY: %g\n", t.Quantity)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %.2f\n", t.EntryPrice)
	fmt.Fprintf(&b, ":EXIT_PRICE: %.2f\n", t.ExitPrice)
	fmt.Fprintf(&b, ":OPEN_TIME: %s\n", t.OpenTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":CLOSE_TIME: %s\n", t.CloseTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":REALIZED_PL: %.2f\n", t.RealizedPL)
	fmt.Fprintf(&b, ":REASON: %s\n", t.Reason)
	b.WriteString(":END:\n\n")
	b.WriteString("*** Notes\n- \n")
	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines, followed
// by a summary table when there is more than one.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	if len(trades) > 1 {
		s := Summarize(trades)
		b.WriteString("\n| trades | wins | losses | net P&L | profit factor |\n")
		b.WriteString("|--------+------+--------+---------+---------------|\n")
		fmt.Fprintf(&b, "| %d | %d | %d | %.2f | %.2f |\n",
			s.Trades, s.Wins, s.Losses, s.NetPL, s.ProfitFactor())
	}
	return b.String()
}
