package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"tradejournal/internal/domain"
)

var csvHeader = []string{
	"id", "symbol", "side", "quantity", "lot_size", "entry_price", "stop_loss", "take_profit",
	"entry_time", "fees", "exit_price", "exit_time", "pnl", "exit_reason", "notes",
	"asian_session", "open_line", "fibo62", "average_line", "moving_average3", "moving_average4",
}

// WriteTradesCSV writes trades with a header row. Open trades leave the exit columns empty.
func WriteTradesCSV(w io.Writer, trades []*domain.Trade) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range trades {
		if t == nil {
			continue
		}
		c := t.Checklist
		record := []string{
			t.ID,
			t.Symbol,
			string(t.Side),
			formatFloat(t.Quantity),
			formatFloat(t.LotSize),
			formatFloat(t.EntryPrice),
			formatFloat(t.StopLoss),
			formatFloat(t.TakeProfit),
			t.EntryTime.UTC().Format(time.RFC3339Nano),
			formatFloat(t.Fees),
			formatOptFloat(t.ExitPrice),
			formatOptTime(t.ExitTime),
			formatOptFloat(t.PnL),
			formatOptReason(t.ExitReason),
			t.Notes,
			strconv.FormatBool(c.AsianSession),
			strconv.FormatBool(c.OpenLine),
			strconv.FormatBool(c.Fibo62),
			strconv.FormatBool(c.AverageLine),
			strconv.FormatBool(c.MovingAverage3),
			strconv.FormatBool(c.MovingAverage4),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportCSV writes trades to filename.
func ExportCSV(filename string, trades []*domain.Trade) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := WriteTradesCSV(file, trades); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}

// ReadTradesCSV parses trades written by WriteTradesCSV. Columns are located by header name.
func ReadTradesCSV(r io.Reader) ([]*domain.Trade, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"symbol", "side", "quantity", "entry_price", "stop_loss", "take_profit", "entry_time"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var trades []*domain.Trade
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		t, err := parseRecord(record, col)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// ImportCSV reads trades from filename.
func ImportCSV(filename string) ([]*domain.Trade, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadTradesCSV(file)
}

func parseRecord(record []string, col map[string]int) (*domain.Trade, error) {
	p := &rowParser{record: record, col: col}
	t := &domain.Trade{
		ID:         p.str("id"),
		Symbol:     p.str("symbol"),
		Side:       domain.Side(strings.ToLower(p.str("side"))),
		Quantity:   p.float("quantity"),
		LotSize:    p.float("lot_size"),
		EntryPrice: p.float("entry_price"),
		StopLoss:   p.float("stop_loss"),
		TakeProfit: p.float("take_profit"),
		EntryTime:  p.time("entry_time"),
		Fees:       p.float("fees"),
		ExitPrice:  p.optFloat("exit_price"),
		ExitTime:   p.optTime("exit_time"),
		PnL:        p.optFloat("pnl"),
		Notes:      p.str("notes"),
		Checklist: domain.Checklist{
			AsianSession:   p.bool("asian_session"),
			OpenLine:       p.bool("open_line"),
			Fibo62:         p.bool("fibo62"),
			AverageLine:    p.bool("average_line"),
			MovingAverage3: p.bool("moving_average3"),
			MovingAverage4: p.bool("moving_average4"),
		},
	}
	if reason := p.str("exit_reason"); reason != "" {
		r := domain.ExitReason(reason)
		if !r.Valid() {
			return nil, fmt.Errorf("unknown exit_reason %q", reason)
		}
		t.ExitReason = &r
	}
	if p.err != nil {
		return nil, p.err
	}
	return t, nil
}

// rowParser reads typed cells from one record and keeps the first error.
type rowParser struct {
	record []string
	col    map[string]int
	err    error
}

func (p *rowParser) str(name string) string {
	i, ok := p.col[name]
	if !ok || i >= len(p.record) {
		return ""
	}
	return strings.TrimSpace(p.record[i])
}

func (p *rowParser) float(name string) float64 {
	v := p.str(name)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: invalid number %q", name, v)
	}
	return f
}

func (p *rowParser) optFloat(name string) *float64 {
	if p.str(name) == "" {
		return nil
	}
	f := p.float(name)
	return &f
}

func (p *rowParser) time(name string) time.Time {
	v := p.str(name)
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: invalid RFC3339 time %q", name, v)
	}
	return t.UTC()
}

func (p *rowParser) optTime(name string) *time.Time {
	if p.str(name) == "" {
		return nil
	}
	t := p.time(name)
	return &t
}

func (p *rowParser) bool(name string) bool {
	v := p.str(name)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: invalid boolean %q", name, v)
	}
	return b
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func formatOptTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatOptReason(r *domain.ExitReason) string {
	if r == nil {
		return ""
	}
	return string(*r)
}
