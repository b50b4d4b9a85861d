package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/Astemirdum/rental-service/rental/internal/model"
	"github.com/Astemirdum/rental-service/rental/internal/repository"
)

func TestMemory_OpenRentalPerBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := repository.NewMemory()

	bookID, err := m.CreateBook(ctx, model.Book{Title: "Dune", IsAvailable: true})
	require.NoError(t, err)
	userID, err := m.CreateUser(ctx, model.User{Name: "alice"})
	require.NoError(t, err)

	rented := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	rentalID, err := m.CreateRental(ctx, model.Rental{
		RentalUid:  "7cbb57f2-7a66-4f1b-b474-3b55a4f34c0e",
		BookID:     bookID,
		UserID:     userID,
		RentalDate: rented,
	})
	require.NoError(t, err)

	// a second open rental for the same book violates the ledger invariant
	_, err = m.CreateRental(ctx, model.Rental{BookID: bookID, UserID: userID, RentalDate: rented})
	require.ErrorIs(t, err, repository.ErrDuplicate)

	returnedAt := rented.Add(20 * 24 * time.Hour)
	require.NoError(t, m.CloseRental(ctx, rentalID, returnedAt, true))

	rentals, err := m.LoadRentals(ctx)
	require.NoError(t, err)
	require.Len(t, rentals, 1)
	require.Equal(t, &returnedAt, rentals[0].ReturnDate)
	require.True(t, rentals[0].IsOverdue)

	// the book is free again
	_, err = m.CreateRental(ctx, model.Rental{BookID: bookID, UserID: userID, RentalDate: returnedAt})
	require.NoError(t, err)
}

func TestMemory_NotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := repository.NewMemory()

	err := m.CloseRental(ctx, 42, time.Now(), false)
	require.True(t, errors.Is(err, repository.ErrNotFound))

	err = m.SetBookState(ctx, 42, true, 0)
	require.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestMemory_SetBookState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := repository.NewMemory()

	bookID, err := m.CreateBook(ctx, model.Book{Title: "Dune", IsAvailable: true})
	require.NoError(t, err)
	require.NoError(t, m.SetBookState(ctx, bookID, false, 7))

	books, err := m.LoadBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.False(t, books[0].IsAvailable)
	require.Equal(t, 7, books[0].RentalCount)
}
