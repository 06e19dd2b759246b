package quant

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimeStamp represents Unix milliseconds.
type TimeStamp int64

// BpsScale is the number of basis points in 100%.
const BpsScale = 10_000

var (
	two      = decimal.NewFromInt(2)
	bpsScale = decimal.NewFromInt(BpsScale)
)

// Now returns the current wall-clock TimeStamp.
func Now() TimeStamp {
	return TimeStamp(time.Now().UnixMilli())
}

func (t TimeStamp) Time() time.Time {
	return time.UnixMilli(int64(t))
}

func (t TimeStamp) String() string {
	return strconv.FormatInt(int64(t), 10)
}

// Mid returns the midpoint of bid and ask. If one side is missing (zero),
// the other side is returned as-is.
func Mid(bid, ask decimal.Decimal) decimal.Decimal {
	if bid.IsZero() {
		return ask
	}
	if ask.IsZero() {
		return bid
	}
	return bid.Add(ask).Div(two)
}

// AddBps adjusts a price upward by the given basis points.
func AddBps(px, bps decimal.Decimal) decimal.Decimal {
	if bps.IsZero() {
		return px
	}
	return px.Mul(bpsScale.Add(bps)).Div(bpsScale)
}

// SubBps adjusts a price downward by the given basis points.
func SubBps(px, bps decimal.Decimal) decimal.Decimal {
	if bps.IsZero() {
		return px
	}
	return px.Mul(bpsScale.Sub(bps)).Div(bpsScale)
}

// BpsOf returns the given fraction (in basis points) of a notional amount.
// Used for fee calculation: BpsOf(notional, feeBps).
func BpsOf(notional, bps decimal.Decimal) decimal.Decimal {
	if bps.IsZero() {
		return decimal.Zero
	}
	return notional.Mul(bps).Div(bpsScale)
}

// ParseDecimal converts a numeric string from an external API into a Decimal.
// Only used at the boundary; internal logic passes Decimal values directly.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d, nil
}

// CoerceTimestamp converts an archival timestamp field into Unix milliseconds.
// Numeric resolution is inferred from magnitude: seconds, milliseconds,
// microseconds or nanoseconds all land in a distinct band for any plausible
// market-data date. Common ISO-8601 layouts are also accepted.
func CoerceTimestamp(value string) (TimeStamp, error) {
	text := strings.TrimSpace(value)
	if text == "" {
		return 0, fmt.Errorf("empty timestamp")
	}

	if f, err := strconv.ParseFloat(text, 64); err == nil {
		switch {
		case f >= 1e18:
			return TimeStamp(int64(f / 1e6)), nil // nanoseconds
		case f >= 1e15:
			return TimeStamp(int64(f / 1e3)), nil // microseconds
		case f >= 1e12:
			return TimeStamp(int64(f)), nil // milliseconds
		default:
			// Second resolution (possibly fractional).
			return TimeStamp(int64(f * 1000)), nil
		}
	}

	iso := strings.Replace(text, "Z", "+00:00", 1)
	for _, layout := range []string{
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02T15:04:05-07:00",
		"2006-01-02 15:04:05.999999",
		"2006-01-02 15:04:05",
	} {
		if ts, err := time.Parse(layout, iso); err == nil {
			return TimeStamp(ts.UnixMilli()), nil
		}
	}

	return 0, fmt.Errorf("unrecognized timestamp %q", value)
}
