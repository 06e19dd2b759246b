package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/henryp-7/hft-bot/internal/domain"
	"github.com/henryp-7/hft-bot/internal/infra"
	"github.com/henryp-7/hft-bot/pkg/quant"
)

// LiveConfig configures the live book ticker source.
type LiveConfig struct {
	WSURL         string // base endpoint, e.g. wss://stream.binance.com:9443
	Symbols       []string
	MaxReconnects int
}

// LiveSource streams real-time best bid/ask quotes over a combined
// websocket stream. One subscription carries all configured symbols.
// The websocket reader and the consumer of Next are decoupled by a
// conflating buffer, so a slow loop sees the freshest quote per symbol
// instead of a growing backlog.
type LiveSource struct {
	cfg    LiveConfig
	worker *infra.BaseWSWorker
	buf    *conflator

	mu       sync.Mutex
	lastID   map[string]int64 // last seen book ticker update id per symbol
	fatalErr error

	started bool
}

// NewLiveSource builds the source. The connection is opened lazily on the
// first call to Next.
func NewLiveSource(cfg LiveConfig) (*LiveSource, error) {
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("feed: at least one symbol is required")
	}
	s := &LiveSource{
		cfg:    cfg,
		buf:    newConflator(),
		lastID: make(map[string]int64),
	}
	s.worker = infra.NewBaseWSWorker(s)
	s.worker.MaxRetries = cfg.MaxReconnects
	return s, nil
}

// Next returns the next fresh quote. It starts the websocket worker on
// first use.
func (s *LiveSource) Next(ctx context.Context) (domain.Quote, error) {
	if !s.started {
		s.started = true
		s.worker.Start(context.Background())
	}

	for {
		if err := s.fatal(); err != nil {
			return domain.Quote{}, err
		}

		q, err := s.buf.Pop(ctx)
		if err != nil {
			if ferr := s.fatal(); ferr != nil {
				return domain.Quote{}, ferr
			}
			return domain.Quote{}, err
		}
		if q.IsZero() {
			// Sentinel pushed by OnFatal to unblock the consumer.
			continue
		}
		return q, nil
	}
}

func (s *LiveSource) fatal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatalErr
}

func (s *LiveSource) Close() error {
	if s.started {
		s.worker.Stop()
	}
	return nil
}

// GetURL builds the combined-stream subscription URL.
func (s *LiveSource) GetURL() string {
	streams := make([]string, len(s.cfg.Symbols))
	for i, sym := range s.cfg.Symbols {
		streams[i] = strings.ToLower(sym) + "@bookTicker"
	}
	return strings.TrimSuffix(s.cfg.WSURL, "/") + "/stream?streams=" + strings.Join(streams, "/")
}

func (s *LiveSource) ID() string { return "binance-bookticker" }

func (s *LiveSource) OnConnect(_ context.Context, _ *websocket.Conn) error {
	// Subscription is part of the URL; nothing to send.
	return nil
}

func (s *LiveSource) OnPing(_ context.Context, conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

func (s *LiveSource) OnFatal(err error) {
	s.mu.Lock()
	if s.fatalErr == nil {
		s.fatalErr = err
	}
	s.mu.Unlock()
	// Unblock a consumer waiting in Pop.
	s.buf.Push(domain.Quote{})
}

// bookTickerMsg is the combined-stream envelope around a book ticker event.
// All prices arrive as strings; json.Number avoids float truncation of the
// update id.
type bookTickerMsg struct {
	Stream string `json:"stream"`
	Data   struct {
		UpdateID  json.Number `json:"u"`
		Symbol    string      `json:"s"`
		BidPrice  string      `json:"b"`
		BidQty    string      `json:"B"`
		AskPrice  string      `json:"a"`
		AskQty    string      `json:"A"`
		EventTime json.Number `json:"E"`
	} `json:"data"`
}

func (s *LiveSource) OnMessage(_ context.Context, msg []byte) {
	var m bookTickerMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		slog.Warn("Feed message parse failed", "err", err)
		return
	}
	if m.Data.Symbol == "" {
		// Subscription acks and other control frames.
		return
	}

	q, updateID, err := s.toQuote(m)
	if err != nil {
		slog.Warn("Feed message invalid, skipping", "symbol", m.Data.Symbol, "err", err)
		return
	}

	if s.isStale(q.Symbol, updateID) {
		return
	}

	s.buf.Push(q)
}

func (s *LiveSource) toQuote(m bookTickerMsg) (domain.Quote, int64, error) {
	bid, err := quant.ParseDecimal(m.Data.BidPrice)
	if err != nil {
		return domain.Quote{}, 0, err
	}
	ask, err := quant.ParseDecimal(m.Data.AskPrice)
	if err != nil {
		return domain.Quote{}, 0, err
	}
	bidQty, err := quant.ParseDecimal(m.Data.BidQty)
	if err != nil {
		return domain.Quote{}, 0, err
	}
	askQty, err := quant.ParseDecimal(m.Data.AskQty)
	if err != nil {
		return domain.Quote{}, 0, err
	}

	// bookTicker events carry no event time on spot; stamp arrival time.
	ts := quant.Now()
	if ev, err := m.Data.EventTime.Int64(); err == nil && ev > 0 {
		ts = quant.TimeStamp(ev)
	}

	var updateID int64
	if id, err := m.Data.UpdateID.Int64(); err == nil {
		updateID = id
	}

	q := domain.Quote{
		Symbol:   strings.ToUpper(m.Data.Symbol),
		BidPrice: bid,
		BidSize:  bidQty,
		AskPrice: ask,
		AskSize:  askQty,
		Ts:       ts,
	}
	if err := q.Validate(); err != nil {
		return domain.Quote{}, 0, err
	}
	return q, updateID, nil
}

// isStale drops reordered events: only strictly increasing update ids pass.
func (s *LiveSource) isStale(symbol string, updateID int64) bool {
	if updateID == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastID[symbol]; ok && updateID <= last {
		return true
	}
	s.lastID[symbol] = updateID
	return false
}
