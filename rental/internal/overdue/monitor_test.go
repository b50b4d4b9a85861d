package overdue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/rental-service/rental/internal/ledger"
	"github.com/Astemirdum/rental-service/rental/internal/model"
	"github.com/Astemirdum/rental-service/rental/internal/overdue"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type stubLedger struct {
	open []ledger.Lending
}

func (s *stubLedger) OpenLendings() []ledger.Lending { return s.open }

func lendingAt(bookID int, title, user string, rented time.Time) ledger.Lending {
	return ledger.Lending{
		Rental: model.Rental{BookID: bookID, UserID: bookID, RentalDate: rented},
		Book:   model.Book{ID: bookID, Title: title},
		User:   model.User{ID: bookID, Name: user, Email: user + "@example.com"},
	}
}

func TestMonitor_ListOverdue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newFakeClock()

	stale := lendingAt(1, "Dune", "alice", clock.Now().Add(-20*24*time.Hour))
	fresh := lendingAt(2, "Hyperion", "bob", clock.Now().Add(-24*time.Hour))
	m := overdue.NewMonitor(&stubLedger{open: []ledger.Lending{stale, fresh}}, zap.NewNop(), overdue.WithClock(clock.Now))

	got := m.ListOverdue(ctx)
	require.Len(t, got, 1)
	require.Equal(t, "Dune", got[0].Book.Title)
	require.Equal(t, "alice@example.com", got[0].User.Email)
}

func TestMonitor_CrossesLoanPeriod(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newFakeClock()

	open := lendingAt(1, "Dune", "alice", clock.Now())
	m := overdue.NewMonitor(&stubLedger{open: []ledger.Lending{open}}, zap.NewNop(), overdue.WithClock(clock.Now))

	require.Empty(t, m.ListOverdue(ctx))

	clock.Advance(ledger.LoanPeriod + time.Hour)
	require.Len(t, m.ListOverdue(ctx), 1)
}

func TestMonitor_NoOpenLendings(t *testing.T) {
	t.Parallel()
	m := overdue.NewMonitor(&stubLedger{}, zap.NewNop())
	got := m.ListOverdue(context.Background())
	require.NotNil(t, got)
	require.Empty(t, got)
}
