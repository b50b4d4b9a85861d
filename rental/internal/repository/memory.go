package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Astemirdum/rental-service/rental/internal/model"
	"github.com/pkg/errors"
)

// Memory is an in-process Store for tests and standalone deployments.
type Memory struct {
	mu      sync.Mutex
	books   map[int]model.Book
	users   map[int]model.User
	rentals map[int]model.Rental

	nextBookID   int
	nextUserID   int
	nextRentalID int
}

func NewMemory() *Memory {
	return &Memory{
		books:   make(map[int]model.Book),
		users:   make(map[int]model.User),
		rentals: make(map[int]model.Rental),
	}
}

func (m *Memory) LoadBooks(_ context.Context) ([]model.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	books := make([]model.Book, 0, len(m.books))
	for _, b := range m.books {
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

func (m *Memory) LoadUsers(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *Memory) LoadRentals(_ context.Context) ([]model.Rental, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rentals := make([]model.Rental, 0, len(m.rentals))
	for _, r := range m.rentals {
		rentals = append(rentals, r)
	}
	sort.Slice(rentals, func(i, j int) bool { return rentals[i].ID < rentals[j].ID })
	return rentals, nil
}

func (m *Memory) CreateBook(_ context.Context, book model.Book) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextBookID++
	book.ID = m.nextBookID
	m.books[book.ID] = book
	return book.ID, nil
}

func (m *Memory) CreateUser(_ context.Context, user model.User) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextUserID++
	user.ID = m.nextUserID
	m.users[user.ID] = user
	return user.ID, nil
}

func (m *Memory) CreateRental(_ context.Context, rental model.Rental) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rentals {
		if r.BookID == rental.BookID && r.Open() {
			return 0, ErrDuplicate
		}
	}
	m.nextRentalID++
	rental.ID = m.nextRentalID
	m.rentals[rental.ID] = rental
	return rental.ID, nil
}

func (m *Memory) CloseRental(_ context.Context, rentalID int, returnedAt time.Time, overdue bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rentals[rentalID]
	if !ok {
		return errors.Wrapf(ErrNotFound, "rental %d", rentalID)
	}
	r.ReturnDate = &returnedAt
	r.IsOverdue = overdue
	m.rentals[rentalID] = r
	return nil
}

func (m *Memory) SetBookState(_ context.Context, bookID int, available bool, rentalCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[bookID]
	if !ok {
		return errors.Wrapf(ErrNotFound, "book %d", bookID)
	}
	b.IsAvailable = available
	b.RentalCount = rentalCount
	m.books[bookID] = b
	return nil
}

func (m *Memory) Close() error {
	return nil
}
