// Package overdue derives which open rentals have exceeded the loan period.
// The overdue flag of an open rental is never cached: it is recomputed on
// every scan and only persisted when the rental is closed.
package overdue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/rental-service/rental/internal/ledger"
)

// LedgerReader is the slice of ledger state the monitor scans.
type LedgerReader interface {
	OpenLendings() []ledger.Lending
}

type Monitor struct {
	ledger LedgerReader
	log    *zap.Logger
	now    func() time.Time
}

type Option func(*Monitor)

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

func NewMonitor(l LedgerReader, log *zap.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		ledger: l,
		log:    log.Named("overdue"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ListOverdue scans open rentals and returns those past the loan period,
// joined with their book and user. Pure read, no state is mutated.
func (m *Monitor) ListOverdue(_ context.Context) []ledger.Lending {
	now := m.now()
	open := m.ledger.OpenLendings()

	overdue := make([]ledger.Lending, 0)
	for _, lending := range open {
		if ledger.Overdue(lending.Rental, now) {
			overdue = append(overdue, lending)
		}
	}
	m.log.Debug("overdue scan",
		zap.Int("open", len(open)),
		zap.Int("overdue", len(overdue)))
	return overdue
}
