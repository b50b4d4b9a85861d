package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Astemirdum/rental-service/rental/internal/ledger"
	"github.com/Astemirdum/rental-service/rental/internal/model"
	"github.com/Astemirdum/rental-service/rental/internal/notify"
	"github.com/Astemirdum/rental-service/rental/internal/overdue"
	"github.com/Astemirdum/rental-service/rental/internal/stats"
)

type Service struct {
	log     *zap.Logger
	ledger  *ledger.Ledger
	monitor *overdue.Monitor
	stats   *stats.Aggregator
	sweeper *notify.Sweeper
}

func NewService(l *ledger.Ledger, monitor *overdue.Monitor, agg *stats.Aggregator, sweeper *notify.Sweeper, log *zap.Logger) *Service {
	return &Service{
		log:     log,
		ledger:  l,
		monitor: monitor,
		stats:   agg,
		sweeper: sweeper,
	}
}

func (s *Service) Search(_ context.Context, title, genre string) ([]model.Book, error) {
	return s.ledger.Catalog().Search(title, genre), nil
}

func (s *Service) Rent(ctx context.Context, username, bookTitle string) (model.Rental, error) {
	return s.ledger.Rent(ctx, username, bookTitle)
}

func (s *Service) Return(ctx context.Context, bookTitle string) (model.Rental, error) {
	return s.ledger.Return(ctx, bookTitle)
}

func (s *Service) HistoryFor(ctx context.Context, username string) ([]model.RentalRecord, error) {
	return s.ledger.HistoryFor(ctx, username)
}

func (s *Service) AddBook(ctx context.Context, book model.Book) (model.Book, error) {
	return s.ledger.AddBook(ctx, book)
}

func (s *Service) AddUser(ctx context.Context, user model.User) (model.User, error) {
	return s.ledger.AddUser(ctx, user)
}

func (s *Service) Report(ctx context.Context) (model.BookStatistics, error) {
	return s.stats.Report(ctx)
}

// NotifyOverdue runs one notification sweep and reports how many reminders
// were attempted.
func (s *Service) NotifyOverdue(ctx context.Context) (int, error) {
	od := s.monitor.ListOverdue(ctx)
	return s.sweeper.Notify(ctx, od), nil
}
