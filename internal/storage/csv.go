package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/henryp-7/hft-bot/internal/domain"
)

var (
	tickHeader = []string{"ts_ms", "symbol", "bid", "ask", "bid_qty", "ask_qty"}
	fillHeader = []string{"ts_ms", "symbol", "side", "qty", "price", "fee", "client_id", "order_id"}
)

// CSVJournal appends quotes and fills to plain CSV files under one
// directory: ticks_<SYMBOL>.csv per symbol plus a single fills.csv. Files
// are created lazily with a header row on first write.
type CSVJournal struct {
	dir   string
	ticks map[string]*csvFile
	fills *csvFile
}

type csvFile struct {
	f *os.File
	w *csv.Writer
}

// NewCSVJournal creates the journal directory if needed.
func NewCSVJournal(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create journal dir: %w", err)
	}
	return &CSVJournal{dir: dir, ticks: make(map[string]*csvFile)}, nil
}

func (j *CSVJournal) AppendQuote(q domain.Quote) error {
	cf, err := j.tickFile(q.Symbol)
	if err != nil {
		return err
	}
	return writeRow(cf, []string{
		q.Ts.String(),
		q.Symbol,
		q.BidPrice.String(),
		q.AskPrice.String(),
		q.BidSize.String(),
		q.AskSize.String(),
	})
}

func (j *CSVJournal) AppendFill(f domain.Fill) error {
	if j.fills == nil {
		cf, err := openCSV(filepath.Join(j.dir, "fills.csv"), fillHeader)
		if err != nil {
			return err
		}
		j.fills = cf
	}
	return writeRow(j.fills, []string{
		f.Ts.String(),
		f.Symbol,
		string(f.Side),
		f.Qty.String(),
		f.Price.String(),
		f.Fee.String(),
		f.ClientID,
		f.OrderID,
	})
}

func (j *CSVJournal) Flush() error {
	var firstErr error
	for _, cf := range j.ticks {
		cf.w.Flush()
		if err := cf.w.Error(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if j.fills != nil {
		j.fills.w.Flush()
		if err := j.fills.w.Error(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (j *CSVJournal) Close() error {
	err := j.Flush()
	for _, cf := range j.ticks {
		cf.f.Close()
	}
	if j.fills != nil {
		j.fills.f.Close()
	}
	j.ticks = make(map[string]*csvFile)
	j.fills = nil
	return err
}

func (j *CSVJournal) tickFile(symbol string) (*csvFile, error) {
	if cf, ok := j.ticks[symbol]; ok {
		return cf, nil
	}
	cf, err := openCSV(filepath.Join(j.dir, "ticks_"+symbol+".csv"), tickHeader)
	if err != nil {
		return nil, err
	}
	j.ticks[symbol] = cf
	return cf, nil
}

// openCSV opens for append, writing the header only when the file is new.
func openCSV(path string, header []string) (*csvFile, error) {
	info, statErr := os.Stat(path)
	fresh := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	cf := &csvFile{f: f, w: csv.NewWriter(f)}
	if fresh {
		if err := writeRow(cf, header); err != nil {
			f.Close()
			return nil, err
		}
	}
	return cf, nil
}

func writeRow(cf *csvFile, record []string) error {
	if err := cf.w.Write(record); err != nil {
		return fmt.Errorf("storage: write csv row: %w", err)
	}
	return nil
}
