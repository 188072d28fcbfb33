package journal

import (
	"encoding/csv"
	"errors"
	"os"
	"strconv"
	"time"
)

var (
	tradesHeader  = []string{"trade_id", "instrument", "side", "quantity", "entry_price", "exit_price", "open_time", "close_time", "realized_pl", "reason"}
	balanceHeader = []string{"time", "balance_before", "balance_after", "reason"}
)

type CSVJournal struct {
	trades  *csv.Writer
	balance *csv.Writer
	tf, bf  *os.File
}

func NewCSV(tradesPath, balancePath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	bf, err := os.Create(balancePath)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}

	j := &CSVJournal{
		trades:  csv.NewWriter(tf),
		balance: csv.NewWriter(bf),
		tf:      tf,
		bf:      bf,
	}
	if err := j.write(j.trades, tradesHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if err := j.write(j.balance, balanceHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	return j.write(j.trades, []string{
		t.TradeID,
		t.Instrument,
		t.Side,
		f(t.Quantity),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.OpenTime.Format(time.RFC3339),
		t.CloseTime.Format(time.RFC3339),
		f(t.RealizedPL),
		t.Reason,
	})
}

func (j *CSVJournal) RecordBalance(b BalanceSnapshot) error {
	return j.write(j.balance, []string{
		b.Time.Format(time.RFC3339),
		f(b.Before),
		f(b.After),
		b.Reason,
	})
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	j.balance.Flush()
	return errors.Join(
		j.trades.Error(),
		j.balance.Error(),
		j.tf.Close(),
		j.bf.Close(),
	)
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}
