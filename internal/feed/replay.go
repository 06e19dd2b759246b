package feed

import (
	"archive/zip"
	"container/heap"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/henryp-7/hft-bot/internal/domain"
	"github.com/henryp-7/hft-bot/pkg/quant"
)

// ReplayConfig configures the historical tick replay source.
type ReplayConfig struct {
	Dir     string   // root directory searched recursively for archives
	Dataset string   // file name filter, e.g. "bookTicker"
	Symbols []string // symbols to merge; order breaks timestamp ties
	// Speed compresses inter-tick gaps: 10 plays an hour of data in six
	// minutes. Zero or negative disables pacing entirely.
	Speed float64
	// Loop restarts a symbol's files from the beginning once exhausted.
	Loop bool
}

// ReplaySource merges per-symbol tick archives into one globally
// timestamp-ordered stream. Identical inputs always produce the identical
// sequence: ties are broken by configured symbol order, then file row
// order, never by wall clock or map iteration.
type ReplaySource struct {
	cfg   ReplayConfig
	files map[string][]string // symbol -> sorted archive paths

	merge  *tickHeap
	active map[string]*symbolCursor
	lastTs quant.TimeStamp
	seq    int64
	prime  bool
}

// NewReplaySource locates archives for every symbol. A symbol with no
// matching files is a configuration error, reported up front.
func NewReplaySource(cfg ReplayConfig) (*ReplaySource, error) {
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("feed: at least one symbol is required")
	}

	files := make(map[string][]string, len(cfg.Symbols))
	for _, sym := range cfg.Symbols {
		found, err := collectArchives(cfg.Dir, sym, cfg.Dataset)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("feed: no %s archives for symbol %s under %s (supports .csv and .zip)",
				cfg.Dataset, sym, cfg.Dir)
		}
		files[sym] = found
	}

	return &ReplaySource{
		cfg:    cfg,
		files:  files,
		merge:  &tickHeap{},
		active: make(map[string]*symbolCursor),
	}, nil
}

// Next returns the next quote in global timestamp order, sleeping out the
// scaled inter-tick gap when pacing is enabled.
func (r *ReplaySource) Next(ctx context.Context) (domain.Quote, error) {
	if !r.prime {
		if err := r.primeHeap(); err != nil {
			return domain.Quote{}, err
		}
		r.prime = true
	}

	if r.merge.Len() == 0 {
		return domain.Quote{}, ErrExhausted
	}

	entry := heap.Pop(r.merge).(tickEntry)

	if r.cfg.Speed > 0 && r.lastTs > 0 && entry.quote.Ts > r.lastTs {
		gap := time.Duration(int64(entry.quote.Ts-r.lastTs)) * time.Millisecond
		delay := time.Duration(float64(gap) / r.cfg.Speed)
		if err := sleepCtx(ctx, delay); err != nil {
			return domain.Quote{}, err
		}
	}
	r.lastTs = entry.quote.Ts

	// Refill from the same symbol so the heap always holds at most one
	// pending tick per symbol.
	if next, ok := r.advance(entry.quote.Symbol); ok {
		heap.Push(r.merge, next)
	}

	return entry.quote, nil
}

func (r *ReplaySource) Close() error {
	for _, cur := range r.active {
		cur.close()
	}
	r.active = make(map[string]*symbolCursor)
	return nil
}

// primeHeap opens a cursor per symbol and seeds the heap with each
// symbol's first tick.
func (r *ReplaySource) primeHeap() error {
	for _, sym := range r.cfg.Symbols {
		cur, err := newSymbolCursor(sym, r.files[sym])
		if err != nil {
			if err == io.EOF {
				slog.Warn("Replay archives empty", "symbol", sym)
				continue
			}
			return err
		}
		r.active[sym] = cur
		if entry, ok := r.advance(sym); ok {
			heap.Push(r.merge, entry)
		}
	}
	if r.merge.Len() == 0 {
		return fmt.Errorf("feed: no ticks available in any archive")
	}
	return nil
}

// advance pulls the next valid tick for a symbol, reopening the archives
// when looping is enabled.
func (r *ReplaySource) advance(symbol string) (tickEntry, bool) {
	cur := r.active[symbol]
	if cur == nil {
		return tickEntry{}, false
	}

	reopened := false
	for {
		q, err := cur.next()
		if err == nil {
			return r.entryFor(q), true
		}
		if err != io.EOF {
			slog.Warn("Replay row skipped", "symbol", symbol, "err", err)
			continue
		}

		cur.close()
		// A cursor that EOFs immediately after a reopen has no valid
		// rows at all; looping it again would spin forever.
		if !r.cfg.Loop || reopened {
			delete(r.active, symbol)
			return tickEntry{}, false
		}
		fresh, oerr := newSymbolCursor(symbol, r.files[symbol])
		if oerr != nil {
			slog.Warn("Replay loop reopen failed", "symbol", symbol, "err", oerr)
			delete(r.active, symbol)
			return tickEntry{}, false
		}
		r.active[symbol] = fresh
		cur = fresh
		reopened = true
	}
}

func (r *ReplaySource) entryFor(q domain.Quote) tickEntry {
	r.seq++
	return tickEntry{quote: q, symOrder: r.symbolOrder(q.Symbol), seq: r.seq}
}

func (r *ReplaySource) symbolOrder(symbol string) int {
	for i, s := range r.cfg.Symbols {
		if strings.EqualFold(s, symbol) {
			return i
		}
	}
	return len(r.cfg.Symbols)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// collectArchives finds .csv and .zip files under root whose file name
// contains both the symbol and the dataset marker, case-insensitively.
func collectArchives(root, symbol, dataset string) ([]string, error) {
	sym := strings.ToLower(symbol)
	ds := strings.ToLower(dataset)

	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		if !strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, ".zip") {
			return nil
		}
		if !strings.Contains(name, sym) {
			return nil
		}
		if ds != "" && !strings.Contains(name, ds) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("feed: scan %s: %w", root, err)
	}
	sort.Strings(out)
	return out, nil
}

// tickEntry orders the merge heap: timestamp, then configured symbol
// order, then row sequence.
type tickEntry struct {
	quote    domain.Quote
	symOrder int
	seq      int64
}

type tickHeap []tickEntry

func (h tickHeap) Len() int { return len(h) }
func (h tickHeap) Less(i, j int) bool {
	if h[i].quote.Ts != h[j].quote.Ts {
		return h[i].quote.Ts < h[j].quote.Ts
	}
	if h[i].symOrder != h[j].symOrder {
		return h[i].symOrder < h[j].symOrder
	}
	return h[i].seq < h[j].seq
}
func (h tickHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *tickHeap) Push(x any)   { *h = append(*h, x.(tickEntry)) }
func (h *tickHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// symbolCursor iterates all rows for one symbol across its archive files.
type symbolCursor struct {
	symbol string
	files  []string
	fileIx int

	rows    *csvRows
	zipFile *zip.ReadCloser
	zipMem  []*zip.File
	zipIx   int
	raw     io.Closer
}

func newSymbolCursor(symbol string, files []string) (*symbolCursor, error) {
	c := &symbolCursor{symbol: symbol, files: files}
	if err := c.openNext(); err != nil {
		return nil, err
	}
	return c, nil
}

// next returns the next tick, io.EOF once all files are consumed, or a
// row-level error the caller may skip past.
func (c *symbolCursor) next() (domain.Quote, error) {
	for {
		if c.rows == nil {
			if err := c.openNext(); err != nil {
				return domain.Quote{}, err
			}
		}

		q, err := c.rows.next(c.symbol)
		if err == io.EOF {
			c.closeCurrent()
			continue
		}
		return q, err
	}
}

// openNext advances to the next CSV stream: the next zip member, or the
// next file in the list. Returns io.EOF when nothing remains.
func (c *symbolCursor) openNext() error {
	// Remaining members of an open zip first.
	if c.zipFile != nil && c.zipIx < len(c.zipMem) {
		member := c.zipMem[c.zipIx]
		c.zipIx++
		rc, err := member.Open()
		if err != nil {
			return fmt.Errorf("feed: open zip member %s: %w", member.Name, err)
		}
		c.raw = rc
		rows, err := newCSVRows(rc)
		if err != nil {
			rc.Close()
			c.raw = nil
			return err
		}
		c.rows = rows
		return nil
	}
	if c.zipFile != nil {
		c.zipFile.Close()
		c.zipFile = nil
	}

	if c.fileIx >= len(c.files) {
		return io.EOF
	}
	path := c.files[c.fileIx]
	c.fileIx++

	if strings.HasSuffix(strings.ToLower(path), ".zip") {
		zr, err := zip.OpenReader(path)
		if err != nil {
			return fmt.Errorf("feed: open %s: %w", path, err)
		}
		var members []*zip.File
		for _, f := range zr.File {
			if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
				members = append(members, f)
			}
		}
		sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
		c.zipFile = zr
		c.zipMem = members
		c.zipIx = 0
		return c.openNext()
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("feed: open %s: %w", path, err)
	}
	c.raw = f
	rows, err := newCSVRows(f)
	if err != nil {
		f.Close()
		c.raw = nil
		return err
	}
	c.rows = rows
	return nil
}

func (c *symbolCursor) closeCurrent() {
	if c.raw != nil {
		c.raw.Close()
		c.raw = nil
	}
	c.rows = nil
}

func (c *symbolCursor) close() {
	c.closeCurrent()
	if c.zipFile != nil {
		c.zipFile.Close()
		c.zipFile = nil
	}
}

// Header aliases accepted across archive vintages.
var (
	bidAliases    = []string{"bestbidprice", "bidprice", "bid", "best_bid_price", "bestbid", "b"}
	askAliases    = []string{"bestaskprice", "askprice", "ask", "best_ask_price", "bestask", "a"}
	bidQtyAliases = []string{"bestbidqty", "bidqty", "bid_quantity", "best_bid_qty", "bqty", "b_volume"}
	askQtyAliases = []string{"bestaskqty", "askqty", "ask_quantity", "best_ask_qty", "aqty", "a_volume"}
	tsAliases     = []string{"eventtime", "event_time", "timestamp", "transacttime", "transact_time", "closetime", "close_time", "time"}
	symAliases    = []string{"symbol"}
)

// csvRows decodes one CSV stream into quotes using its header row.
type csvRows struct {
	reader *csv.Reader
	cols   map[string]int
}

func newCSVRows(r io.Reader) (*csvRows, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return &csvRows{reader: cr, cols: map[string]int{}}, nil
		}
		return nil, fmt.Errorf("feed: read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return &csvRows{reader: cr, cols: cols}, nil
}

func (cr *csvRows) next(defaultSymbol string) (domain.Quote, error) {
	record, err := cr.reader.Read()
	if err != nil {
		if err == io.EOF {
			return domain.Quote{}, io.EOF
		}
		return domain.Quote{}, fmt.Errorf("feed: read csv row: %w", err)
	}
	return cr.decode(defaultSymbol, record)
}

func (cr *csvRows) decode(defaultSymbol string, record []string) (domain.Quote, error) {
	field := func(aliases []string) (string, bool) {
		for _, a := range aliases {
			if ix, ok := cr.cols[a]; ok && ix < len(record) {
				v := strings.TrimSpace(record[ix])
				if v != "" {
					return v, true
				}
			}
		}
		return "", false
	}

	dec := func(aliases []string, what string) (decimal.Decimal, error) {
		v, ok := field(aliases)
		if !ok {
			return decimal.Zero, fmt.Errorf("missing %s", what)
		}
		return quant.ParseDecimal(v)
	}

	bid, err := dec(bidAliases, "bid")
	if err != nil {
		return domain.Quote{}, err
	}
	ask, err := dec(askAliases, "ask")
	if err != nil {
		return domain.Quote{}, err
	}
	bidQty, err := dec(bidQtyAliases, "bid qty")
	if err != nil {
		return domain.Quote{}, err
	}
	askQty, err := dec(askQtyAliases, "ask qty")
	if err != nil {
		return domain.Quote{}, err
	}

	tsRaw, ok := field(tsAliases)
	if !ok {
		return domain.Quote{}, fmt.Errorf("missing timestamp")
	}
	ts, err := quant.CoerceTimestamp(tsRaw)
	if err != nil {
		return domain.Quote{}, err
	}

	symbol := defaultSymbol
	if v, ok := field(symAliases); ok {
		symbol = v
	}

	q := domain.Quote{
		Symbol:   strings.ToUpper(symbol),
		BidPrice: bid,
		BidSize:  bidQty,
		AskPrice: ask,
		AskSize:  askQty,
		Ts:       ts,
	}
	if err := q.Validate(); err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}
