// Package stats aggregates popularity and overdue statistics over catalog
// and ledger state.
package stats

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/rental-service/rental/internal/ledger"
	"github.com/Astemirdum/rental-service/rental/internal/model"
)

type LedgerReader interface {
	Books() []model.Book
	Rentals() []model.Rental
}

type OverdueMonitor interface {
	ListOverdue(ctx context.Context) []ledger.Lending
}

// Sweeper delivers overdue reminders. Its failures never surface here.
type Sweeper interface {
	Notify(ctx context.Context, overdue []ledger.Lending) int
}

type Aggregator struct {
	ledger  LedgerReader
	monitor OverdueMonitor
	sweeper Sweeper
	log     *zap.Logger
	now     func() time.Time
}

type Option func(*Aggregator)

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

func New(l LedgerReader, monitor OverdueMonitor, sweeper Sweeper, log *zap.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		ledger:  l,
		monitor: monitor,
		sweeper: sweeper,
		log:     log.Named("stats"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Report computes the most-overdue, most-popular and least-popular books.
// It refreshes overdue state through the monitor first and fires the
// notification sweep as a side effect; the sweep never fails the report.
//
// mostOverdue ranks books by how many of their rentals, open or closed,
// violated the loan period; ties break to the lowest book id.
func (a *Aggregator) Report(ctx context.Context) (model.BookStatistics, error) {
	overdue := a.monitor.ListOverdue(ctx)
	if a.sweeper != nil {
		sent := a.sweeper.Notify(ctx, overdue)
		a.log.Debug("overdue sweep", zap.Int("notices", sent))
	}

	books := a.ledger.Books()
	now := a.now()

	var stats model.BookStatistics
	if len(books) == 0 {
		return stats, nil
	}

	titles := make(map[int]string, len(books))
	for _, b := range books {
		titles[b.ID] = b.Title
	}

	overdueCounts := make(map[int]int)
	for _, r := range a.ledger.Rentals() {
		if ledger.Overdue(r, now) {
			overdueCounts[r.BookID]++
		}
	}
	mostOverdueID, mostOverdueCount := 0, 0
	for _, b := range books {
		if c := overdueCounts[b.ID]; c > mostOverdueCount {
			mostOverdueID, mostOverdueCount = b.ID, c
		}
	}
	if mostOverdueCount > 0 {
		stats.MostOverdue = &model.BookStat{
			BookName:    titles[mostOverdueID],
			RentalCount: mostOverdueCount,
			IsOverdue:   true,
		}
	}

	most, least := books[0], books[0]
	for _, b := range books[1:] {
		if b.RentalCount > most.RentalCount {
			most = b
		}
		if b.RentalCount < least.RentalCount {
			least = b
		}
	}
	stats.MostPopular = &model.BookStat{BookName: most.Title, RentalCount: most.RentalCount}
	stats.LeastPopular = &model.BookStat{BookName: least.Title, RentalCount: least.RentalCount}

	return stats, nil
}
