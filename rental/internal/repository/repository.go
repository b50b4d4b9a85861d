package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Astemirdum/rental-service/rental/internal/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// Store is the durability layer behind the ledger. The ledger is the source
// of truth for availability; the store only persists what the ledger decided.
type Store interface {
	LoadBooks(ctx context.Context) ([]model.Book, error)
	LoadUsers(ctx context.Context) ([]model.User, error)
	LoadRentals(ctx context.Context) ([]model.Rental, error)

	CreateBook(ctx context.Context, book model.Book) (int, error)
	CreateUser(ctx context.Context, user model.User) (int, error)

	CreateRental(ctx context.Context, rental model.Rental) (int, error)
	CloseRental(ctx context.Context, rentalID int, returnedAt time.Time, overdue bool) error
	SetBookState(ctx context.Context, bookID int, available bool, rentalCount int) error

	Close() error
}
