package strategy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/henryp-7/hft-bot/internal/domain"
	"github.com/henryp-7/hft-bot/pkg/quant"
)

// RebalanceConfig configures the equal-weight rebalancer.
type RebalanceConfig struct {
	// Weights maps instrument to target portfolio weight. Weights need not
	// sum to 1; cash is the residual.
	Weights map[string]decimal.Decimal

	// DeviationAbs triggers a rebalance when |current-target| exceeds this
	// absolute notional. DeviationPct (in percent of target) applies when
	// DeviationAbs is zero.
	DeviationAbs decimal.Decimal
	DeviationPct decimal.Decimal

	// LotSize rounds order quantities toward zero to whole lots. Defaults
	// to 1 when zero.
	LotSize decimal.Decimal

	// PriceCushionBps inflates the sizing price on buys by the expected
	// slippage plus fee so the resulting fill cannot overdraw cash.
	PriceCushionBps decimal.Decimal

	// Cooldown suppresses repeat orders per instrument. Zero disables it.
	Cooldown time.Duration
}

// Rebalancer nudges each instrument's notional toward its target share of
// total equity, one order per deviation breach. Only the instrument whose
// quote changed is reevaluated; targets for the others are unaffected by a
// single tick.
type Rebalancer struct {
	cfg        RebalanceConfig
	lastAction map[string]time.Time
	now        func() time.Time
}

func NewRebalancer(cfg RebalanceConfig) *Rebalancer {
	if cfg.LotSize.IsZero() {
		cfg.LotSize = decimal.NewFromInt(1)
	}
	return &Rebalancer{
		cfg:        cfg,
		lastAction: make(map[string]time.Time),
		now:        time.Now,
	}
}

func (r *Rebalancer) OnQuote(q domain.Quote, snap Snapshot) []domain.OrderRequest {
	weight, ok := r.cfg.Weights[q.Symbol]
	if !ok || !weight.IsPositive() {
		return nil
	}

	if r.cfg.Cooldown > 0 {
		if last, ok := r.lastAction[q.Symbol]; ok && r.now().Sub(last) < r.cfg.Cooldown {
			return nil
		}
	}

	mid := q.Mid()
	if !mid.IsPositive() {
		return nil
	}

	target := snap.Equity().Mul(weight)
	current := snap.Portfolio.Position(q.Symbol).Notional(mid)
	gap := target.Sub(current)

	if gap.Abs().LessThanOrEqual(r.threshold(target)) {
		return nil
	}

	var side domain.Side
	var px decimal.Decimal
	if gap.IsPositive() {
		side = domain.SideBuy
		// Size against the cushioned ask so slippage and fees cannot push
		// cash negative once the fill lands.
		px = quant.AddBps(q.AskPrice, r.cfg.PriceCushionBps)
	} else {
		side = domain.SideSell
		px = q.BidPrice
	}
	if !px.IsPositive() {
		return nil
	}

	qty := gap.Abs().Div(px)
	if side == domain.SideBuy {
		affordable := snap.Portfolio.Cash.Div(px)
		qty = decimal.Min(qty, affordable)
	}
	qty = roundToLot(qty, r.cfg.LotSize)
	if !qty.IsPositive() {
		return nil
	}

	r.lastAction[q.Symbol] = r.now()
	return []domain.OrderRequest{{
		Symbol: q.Symbol,
		Side:   side,
		Qty:    qty,
		Intent: "rebalance",
	}}
}

func (r *Rebalancer) threshold(target decimal.Decimal) decimal.Decimal {
	if r.cfg.DeviationAbs.IsPositive() {
		return r.cfg.DeviationAbs
	}
	hundred := decimal.NewFromInt(100)
	return target.Abs().Mul(r.cfg.DeviationPct).Div(hundred)
}

// roundToLot rounds toward zero to a whole number of lots, avoiding
// overshoot past the target.
func roundToLot(qty, lot decimal.Decimal) decimal.Decimal {
	return qty.Div(lot).Floor().Mul(lot)
}
