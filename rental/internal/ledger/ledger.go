// Package ledger owns every rental state transition and the availability
// invariant: a book is available iff no open rental references it, and at
// most one open rental may reference a book at any time. All mutation goes
// through Rent and Return; rentals are never deleted, only closed.
package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/rental-service/rental/internal/errs"
	"github.com/Astemirdum/rental-service/rental/internal/model"
	"github.com/Astemirdum/rental-service/rental/internal/repository"
)

// LoanPeriod is the fixed loan window after which an open rental is overdue.
const LoanPeriod = 14 * 24 * time.Hour

// Overdue reports whether the rental exceeded the loan period, measured to
// its return date if closed, otherwise to now.
func Overdue(r model.Rental, now time.Time) bool {
	end := now
	if r.ReturnDate != nil {
		end = *r.ReturnDate
	}
	return end.Sub(r.RentalDate) > LoanPeriod
}

// Lending is a rental joined with its book and user.
type Lending struct {
	Rental model.Rental `json:"rental"`
	Book   model.Book   `json:"book"`
	User   model.User   `json:"user"`
}

type Ledger struct {
	log   *zap.Logger
	store repository.Store
	msgs  errs.Messages
	now   func() time.Time

	// mu guards the maps and the Book/Rental values they point to.
	// locks serializes the check-and-flip of rent/return per book, so that
	// operations on different books never contend.
	mu          sync.RWMutex
	locks       *keyedLocks
	addMu       sync.Mutex
	books       map[int]*model.Book
	bookByTitle map[string]int
	users       map[int]*model.User
	userByName  map[string]int
	rentals     map[int]*model.Rental
	openByBook  map[int]int
}

type Option func(*Ledger)

// WithClock overrides the time source, used by tests to simulate elapsed days.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// New builds a ledger over the state loaded from store. Availability is
// recomputed from open rentals on load, never trusted from storage.
func New(ctx context.Context, store repository.Store, msgs errs.Messages, log *zap.Logger, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		log:         log.Named("ledger"),
		store:       store,
		msgs:        msgs,
		now:         time.Now,
		locks:       newKeyedLocks(),
		books:       make(map[int]*model.Book),
		bookByTitle: make(map[string]int),
		users:       make(map[int]*model.User),
		userByName:  make(map[string]int),
		rentals:     make(map[int]*model.Rental),
		openByBook:  make(map[int]int),
	}
	for _, opt := range opts {
		opt(l)
	}

	books, err := store.LoadBooks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load books")
	}
	for i := range books {
		b := books[i]
		l.books[b.ID] = &b
		l.bookByTitle[titleKey(b.Title)] = b.ID
	}

	users, err := store.LoadUsers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load users")
	}
	for i := range users {
		u := users[i]
		l.users[u.ID] = &u
		l.userByName[u.Name] = u.ID
	}

	rentals, err := store.LoadRentals(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load rentals")
	}
	for i := range rentals {
		r := rentals[i]
		l.rentals[r.ID] = &r
		if r.Open() {
			if _, dup := l.openByBook[r.BookID]; dup {
				return nil, errors.Errorf("two open rentals for book %d", r.BookID)
			}
			l.openByBook[r.BookID] = r.ID
		}
	}
	for id, b := range l.books {
		_, open := l.openByBook[id]
		b.IsAvailable = !open
	}

	return l, nil
}

// Rent opens a rental for the user on the named book. The availability check
// and flip run under the book's lock: of two concurrent calls on the same
// available book exactly one succeeds, the other observes BookUnavailable.
// On any failure no state is mutated.
func (l *Ledger) Rent(ctx context.Context, username, bookTitle string) (model.Rental, error) {
	l.mu.RLock()
	bookID, okBook := l.bookByTitle[titleKey(bookTitle)]
	userID, okUser := l.userByName[username]
	l.mu.RUnlock()
	if !okBook {
		l.log.Warn("rent: book not found", zap.String("title", bookTitle))
		return model.Rental{}, l.msgs.New(errs.CodeBookNotFound)
	}
	if !okUser {
		l.log.Warn("rent: user not found", zap.String("user", username))
		return model.Rental{}, l.msgs.New(errs.CodeUserNotFound)
	}

	unlock := l.locks.lock(bookID)
	defer unlock()

	l.mu.RLock()
	_, open := l.openByBook[bookID]
	l.mu.RUnlock()
	if open {
		l.log.Warn("rent: book unavailable", zap.String("title", bookTitle))
		return model.Rental{}, l.msgs.New(errs.CodeBookUnavailable)
	}

	rental := model.Rental{
		RentalUid:  uuid.NewString(),
		BookID:     bookID,
		UserID:     userID,
		RentalDate: l.now().UTC(),
	}
	id, err := l.store.CreateRental(ctx, rental)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Rental{}, l.msgs.New(errs.CodeBookUnavailable)
		}
		return model.Rental{}, errors.Wrap(err, "create rental")
	}
	rental.ID = id

	l.mu.Lock()
	stored := rental
	l.rentals[id] = &stored
	l.openByBook[bookID] = id
	book := l.books[bookID]
	book.IsAvailable = false
	book.RentalCount++
	count := book.RentalCount
	l.mu.Unlock()

	if err := l.store.SetBookState(ctx, bookID, false, count); err != nil {
		l.log.Warn("book state write-through", zap.Int("book_id", bookID), zap.Error(err))
	}

	l.log.Info("book rented",
		zap.String("user", username),
		zap.String("title", bookTitle),
		zap.String("rental_uid", rental.RentalUid))
	return rental, nil
}

// Return closes the unique open rental on the named book, stamps the return
// date, persists the overdue flag and flips the book back to available. It
// holds the same per-book lock as Rent.
func (l *Ledger) Return(ctx context.Context, bookTitle string) (model.Rental, error) {
	l.mu.RLock()
	bookID, okBook := l.bookByTitle[titleKey(bookTitle)]
	l.mu.RUnlock()
	if !okBook {
		return model.Rental{}, l.msgs.New(errs.CodeRentalNotFound)
	}

	unlock := l.locks.lock(bookID)
	defer unlock()

	l.mu.RLock()
	rentalID, open := l.openByBook[bookID]
	everRented := false
	if !open {
		for _, r := range l.rentals {
			if r.BookID == bookID {
				everRented = true
				break
			}
		}
	}
	rented := model.Rental{}
	if open {
		rented = *l.rentals[rentalID]
	}
	l.mu.RUnlock()

	if !open {
		if everRented {
			return model.Rental{}, l.msgs.New(errs.CodeBookAlreadyReturned)
		}
		return model.Rental{}, l.msgs.New(errs.CodeRentalNotFound)
	}

	returnedAt := l.now().UTC()
	overdue := Overdue(rented, returnedAt)

	if err := l.store.CloseRental(ctx, rentalID, returnedAt, overdue); err != nil {
		return model.Rental{}, errors.Wrap(err, "close rental")
	}

	l.mu.Lock()
	r := l.rentals[rentalID]
	r.ReturnDate = &returnedAt
	r.IsOverdue = overdue
	closed := *r
	delete(l.openByBook, bookID)
	book := l.books[bookID]
	book.IsAvailable = true
	count := book.RentalCount
	l.mu.Unlock()

	if err := l.store.SetBookState(ctx, bookID, true, count); err != nil {
		l.log.Warn("book state write-through", zap.Int("book_id", bookID), zap.Error(err))
	}

	l.log.Info("book returned",
		zap.String("title", bookTitle),
		zap.Bool("overdue", overdue))
	return closed, nil
}

// HistoryFor lists all rentals of the user, open and closed, with overdue
// computed against the loan period. A user with no rentals gets an empty
// history; an unknown user gets UserNotFound.
func (l *Ledger) HistoryFor(_ context.Context, username string) ([]model.RentalRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	userID, ok := l.userByName[username]
	if !ok {
		return nil, l.msgs.New(errs.CodeUserNotFound)
	}

	now := l.now()
	ids := make([]int, 0)
	for id, r := range l.rentals {
		if r.UserID == userID {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	records := make([]model.RentalRecord, 0, len(ids))
	for _, id := range ids {
		r := l.rentals[id]
		records = append(records, model.RentalRecord{
			RentalDate: r.RentalDate,
			ReturnDate: r.ReturnDate,
			BookTitle:  l.books[r.BookID].Title,
			IsOverdue:  Overdue(*r, now),
		})
	}
	return records, nil
}

// AddBook registers a new book. Availability and rental count are derived
// state and always start fresh.
func (l *Ledger) AddBook(ctx context.Context, book model.Book) (model.Book, error) {
	l.addMu.Lock()
	defer l.addMu.Unlock()

	key := titleKey(book.Title)
	l.mu.RLock()
	_, exists := l.bookByTitle[key]
	l.mu.RUnlock()
	if exists {
		return model.Book{}, errors.Wrapf(errs.ErrDuplicate, "book %q", book.Title)
	}

	book.IsAvailable = true
	book.RentalCount = 0
	id, err := l.store.CreateBook(ctx, book)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Book{}, errors.Wrapf(errs.ErrDuplicate, "book %q", book.Title)
		}
		return model.Book{}, errors.Wrap(err, "create book")
	}
	book.ID = id

	l.mu.Lock()
	stored := book
	l.books[id] = &stored
	l.bookByTitle[key] = id
	l.mu.Unlock()

	return book, nil
}

func (l *Ledger) AddUser(ctx context.Context, user model.User) (model.User, error) {
	l.addMu.Lock()
	defer l.addMu.Unlock()

	l.mu.RLock()
	_, exists := l.userByName[user.Name]
	l.mu.RUnlock()
	if exists {
		return model.User{}, errors.Wrapf(errs.ErrDuplicate, "user %q", user.Name)
	}

	id, err := l.store.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.User{}, errors.Wrapf(errs.ErrDuplicate, "user %q", user.Name)
		}
		return model.User{}, errors.Wrap(err, "create user")
	}
	user.ID = id

	l.mu.Lock()
	stored := user
	l.users[id] = &stored
	l.userByName[user.Name] = id
	l.mu.Unlock()

	return user, nil
}

// Books returns a consistent snapshot of all books, ordered by id.
func (l *Ledger) Books() []model.Book {
	l.mu.RLock()
	defer l.mu.RUnlock()
	books := make([]model.Book, 0, len(l.books))
	for _, b := range l.books {
		books = append(books, *b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books
}

// Rentals returns a consistent snapshot of all rentals, ordered by id.
func (l *Ledger) Rentals() []model.Rental {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rentals := make([]model.Rental, 0, len(l.rentals))
	for _, r := range l.rentals {
		rentals = append(rentals, *r)
	}
	sort.Slice(rentals, func(i, j int) bool { return rentals[i].ID < rentals[j].ID })
	return rentals
}

// OpenLendings returns every open rental joined with its book and user,
// ordered by book id.
func (l *Ledger) OpenLendings() []Lending {
	l.mu.RLock()
	defer l.mu.RUnlock()
	lendings := make([]Lending, 0, len(l.openByBook))
	for bookID, rentalID := range l.openByBook {
		r := l.rentals[rentalID]
		lendings = append(lendings, Lending{
			Rental: *r,
			Book:   *l.books[bookID],
			User:   *l.users[r.UserID],
		})
	}
	sort.Slice(lendings, func(i, j int) bool { return lendings[i].Book.ID < lendings[j].Book.ID })
	return lendings
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
