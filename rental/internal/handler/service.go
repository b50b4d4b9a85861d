package handler

import (
	"context"

	"github.com/Astemirdum/rental-service/rental/internal/model"
)

//go:generate mockgen -source=service.go -destination=mocks/mock.go -package=service_mocks

type RentalService interface {
	Search(ctx context.Context, title, genre string) ([]model.Book, error)
	Rent(ctx context.Context, username, bookTitle string) (model.Rental, error)
	Return(ctx context.Context, bookTitle string) (model.Rental, error)
	HistoryFor(ctx context.Context, username string) ([]model.RentalRecord, error)
	AddBook(ctx context.Context, book model.Book) (model.Book, error)
	AddUser(ctx context.Context, user model.User) (model.User, error)
}

type StatsService interface {
	Report(ctx context.Context) (model.BookStatistics, error)
}

type NotifyService interface {
	NotifyOverdue(ctx context.Context) (int, error)
}
