package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/rental-service/rental/internal/ledger"
)

const sweepConcurrency = 8

const overdueSubject = "Your Rental is Overdue!"

// Sweeper fans one reminder out per overdue lending. Each recipient is
// independent: a failed send is logged and the rest of the batch proceeds.
type Sweeper struct {
	notifier Notifier
	log      *zap.Logger
}

func NewSweeper(notifier Notifier, log *zap.Logger) *Sweeper {
	return &Sweeper{
		notifier: notifier,
		log:      log.Named("sweeper"),
	}
}

// Notify returns the number of overdue lendings it attempted to notify.
// With no notifier configured it is a no-op.
func (s *Sweeper) Notify(ctx context.Context, overdue []ledger.Lending) int {
	if s.notifier == nil || len(overdue) == 0 {
		return 0
	}

	var g errgroup.Group
	g.SetLimit(sweepConcurrency)
	for _, od := range overdue {
		od := od
		g.Go(func() error {
			body := fmt.Sprintf("Dear %s,\n\nYour rental for '%s' is overdue. "+
				"Please return it at your earliest convenience.\n\nThank you,\nBook Rental Service",
				od.User.Name, od.Book.Title)
			if err := s.notifier.Send(ctx, od.User.Email, overdueSubject, body); err != nil {
				s.log.Warn("overdue notice",
					zap.String("email", od.User.Email),
					zap.String("title", od.Book.Title),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // per-recipient failures are already logged
	return len(overdue)
}
