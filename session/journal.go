package session

import (
	"github.com/rs/zerolog"
	"github.com/rustyeddy/demotrader/journal"
)

// JournalObserver writes closed positions and balance changes to a
// journal. Write failures are logged and never interrupt the session.
type JournalObserver struct {
	j      journal.Journal
	logger zerolog.Logger
}

func NewJournalObserver(j journal.Journal, logger zerolog.Logger) *JournalObserver {
	return &JournalObserver{j: j, logger: logger.With().Str("component", "journal").Logger()}
}

func (o *JournalObserver) Observe(e Event) {
	var err error
	switch e.Kind {
	case EventClose:
		p := e.Position
		rec := journal.TradeRecord{
			TradeID:    p.ID,
			Instrument: p.Instrument,
			Side:       string(p.Side),
			Quantity:   p.Quantity,
			EntryPrice: p.EntryPrice,
			OpenTime:   p.EntryTime,
			RealizedPL: p.PnL,
			Reason:     string(p.CloseReason),
		}
		if p.ExitPrice != nil {
			rec.ExitPrice = *p.ExitPrice
		}
		if p.ExitTime != nil {
			rec.CloseTime = *p.ExitTime
		}
		err = o.j.RecordTrade(rec)

	case EventBalance:
		err = o.j.RecordBalance(journal.BalanceSnapshot{
			Time:   e.Time,
			Before: e.Balance.Before,
			After:  e.Balance.After,
			Reason: e.Reason,
		})

	default:
		return
	}

	if err != nil {
		o.logger.Error().Err(err).Str("event", string(e.Kind)).Msg("journal write failed")
	}
}
