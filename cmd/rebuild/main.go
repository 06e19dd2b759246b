// Command rebuild recomputes portfolio state from a SQLite journal by
// re-applying every recorded fill to a fresh ledger. Useful to audit a
// run's accounting or to recover state after a crash.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"github.com/henryp-7/hft-bot/internal/portfolio"
	"github.com/henryp-7/hft-bot/internal/storage"
)

func main() {
	dbPath := flag.String("journal", "data/journal.db", "path to SQLite journal")
	quoteCcy := flag.String("quote-ccy", "USDT", "quote currency")
	initialCash := flag.String("initial-cash", "0", "cash the run started with")
	flag.Parse()

	if err := run(*dbPath, *quoteCcy, *initialCash); err != nil {
		slog.Error("Rebuild failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(dbPath, quoteCcy, initialCash string) error {
	cash, err := decimal.NewFromString(initialCash)
	if err != nil {
		return fmt.Errorf("parse initial cash: %w", err)
	}

	journal, err := storage.NewSQLiteJournal(dbPath)
	if err != nil {
		return err
	}
	defer journal.Close()

	fills, err := journal.Fills()
	if err != nil {
		return err
	}

	ledger, err := portfolio.NewLedger(quoteCcy, cash)
	if err != nil {
		return err
	}

	for i, f := range fills {
		if err := ledger.ApplyFill(f); err != nil {
			return fmt.Errorf("fill %d (%s %s %s): %w", i, f.Symbol, f.Side, f.Qty, err)
		}
	}

	view := ledger.View()
	fmt.Printf("fills applied: %d\n", len(fills))
	fmt.Printf("cash:          %s %s\n", view.Cash, view.QuoteCcy)
	fmt.Printf("realized pnl:  %s %s\n", ledger.RealizedPnL(), view.QuoteCcy)
	for sym, pos := range view.Positions {
		fmt.Printf("position:      %s qty=%s avg=%s\n", sym, pos.Qty, pos.AvgPrice)
	}
	return nil
}
