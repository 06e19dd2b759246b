package venue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"

	"github.com/henryp-7/hft-bot/internal/domain"
	"github.com/henryp-7/hft-bot/internal/infra"
	"github.com/henryp-7/hft-bot/pkg/quant"
)

// Binance API error codes that indicate a retryable condition rather than a
// business rejection.
var transientAPICodes = map[int64]bool{
	-1000: true, // UNKNOWN
	-1001: true, // DISCONNECTED
	-1003: true, // TOO_MANY_REQUESTS
	-1006: true, // UNEXPECTED_RESP
	-1007: true, // TIMEOUT
	-1021: true, // INVALID_TIMESTAMP (clock skew, recoverable)
}

// BinanceClient routes spot market orders to Binance. Order submissions are
// throttled through a token-bucket limiter to stay inside exchange rate
// limits.
type BinanceClient struct {
	api     *binance.Client
	limiter *infra.RateLimiter
}

func NewBinanceClient(apiKey, apiSecret string, testnet bool, limiter *infra.RateLimiter) *BinanceClient {
	binance.UseTestnet = testnet
	return &BinanceClient{
		api:     binance.NewClient(apiKey, apiSecret),
		limiter: limiter,
	}
}

func (c *BinanceClient) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.Fill, error) {
	if c.limiter != nil {
		c.limiter.Wait()
	}

	side := binance.SideTypeBuy
	if req.Side == domain.SideSell {
		side = binance.SideTypeSell
	}

	svc := c.api.NewCreateOrderService().
		Symbol(strings.ToUpper(req.Symbol)).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(req.Qty.String())
	if req.ClientID != "" {
		svc = svc.NewClientOrderID(req.ClientID)
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return domain.Fill{}, classify(err)
	}

	executedQty, err := quant.ParseDecimal(res.ExecutedQuantity)
	if err != nil {
		return domain.Fill{}, fmt.Errorf("venue: bad executed quantity: %w", err)
	}
	if !executedQty.IsPositive() {
		return domain.Fill{}, fmt.Errorf("venue: order %d reported zero executed quantity", res.OrderID)
	}

	// Average fill price from cumulative quote quantity.
	quoteQty, err := quant.ParseDecimal(res.CummulativeQuoteQuantity)
	if err != nil {
		return domain.Fill{}, fmt.Errorf("venue: bad quote quantity: %w", err)
	}
	avgPrice := quoteQty.Div(executedQty)

	return domain.Fill{
		ClientID: req.ClientID,
		OrderID:  strconv.FormatInt(res.OrderID, 10),
		Symbol:   req.Symbol,
		Side:     req.Side,
		Price:    avgPrice,
		Qty:      executedQty,
		Fee:      sumQuoteFees(res.Fills, req.Symbol),
		Ts:       quant.TimeStamp(res.TransactTime),
	}, nil
}

func classify(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if transientAPICodes[apiErr.Code] {
			return Transient(err)
		}
		// Business rejection (insufficient balance, bad symbol, filters).
		return err
	}
	// Anything below the API layer is a network-class failure.
	return Transient(err)
}

// sumQuoteFees adds up the commissions charged in the quote currency.
// Commissions charged in other assets (e.g. BNB discounts) are not folded
// into the cash ledger and are skipped.
func sumQuoteFees(fills []*binance.Fill, symbol string) decimal.Decimal {
	total := decimal.Zero
	for _, f := range fills {
		if f == nil {
			continue
		}
		if !strings.HasSuffix(strings.ToUpper(symbol), strings.ToUpper(f.CommissionAsset)) {
			continue
		}
		if c, err := quant.ParseDecimal(f.Commission); err == nil {
			total = total.Add(c)
		}
	}
	return total
}
