package ledger_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/rental-service/rental/internal/errs"
	"github.com/Astemirdum/rental-service/rental/internal/ledger"
	"github.com/Astemirdum/rental-service/rental/internal/model"
	"github.com/Astemirdum/rental-service/rental/internal/repository"
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

func testMessages() errs.Messages {
	return errs.Messages{
		errs.CodeBookNotFound:        "book not found",
		errs.CodeBookUnavailable:     "book is not available",
		errs.CodeUserNotFound:        "user not found",
		errs.CodeRentalNotFound:      "no open rental for this book",
		errs.CodeBookAlreadyReturned: "book has already been returned",
	}
}

func newTestLedger(t *testing.T, clock *fakeClock) *ledger.Ledger {
	t.Helper()
	l, err := ledger.New(context.Background(), repository.NewMemory(), testMessages(), zap.NewNop(), ledger.WithClock(clock.Now))
	require.NoError(t, err)
	return l
}

func addBook(t *testing.T, l *ledger.Ledger, title, genre string) model.Book {
	t.Helper()
	book, err := l.AddBook(context.Background(), model.Book{Title: title, Author: "author", Genre: genre})
	require.NoError(t, err)
	return book
}

func addUser(t *testing.T, l *ledger.Ledger, name string) model.User {
	t.Helper()
	user, err := l.AddUser(context.Background(), model.User{Name: name, Email: name + "@example.com"})
	require.NoError(t, err)
	return user
}

func TestLedger_RentReturnRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newFakeClock()
	l := newTestLedger(t, clock)
	addBook(t, l, "Dune", "Sci-Fi")
	alice := addUser(t, l, "alice")
	addUser(t, l, "bob")

	rental, err := l.Rent(ctx, "alice", "Dune")
	require.NoError(t, err)
	require.Equal(t, alice.ID, rental.UserID)
	require.True(t, rental.Open())
	require.NotEmpty(t, rental.RentalUid)

	book, err := l.Catalog().FindByTitle("Dune")
	require.NoError(t, err)
	require.False(t, book.IsAvailable)
	require.Equal(t, 1, book.RentalCount)

	// second caller observes the conflict
	_, err = l.Rent(ctx, "bob", "Dune")
	require.Equal(t, errs.CodeBookUnavailable, errs.CodeOf(err))

	// 20 simulated days later the return is overdue
	clock.Advance(20 * 24 * time.Hour)
	closed, err := l.Return(ctx, "dune")
	require.NoError(t, err)
	require.NotNil(t, closed.ReturnDate)
	require.True(t, closed.IsOverdue)

	book, err = l.Catalog().FindByTitle("Dune")
	require.NoError(t, err)
	require.True(t, book.IsAvailable)
	require.Equal(t, 1, book.RentalCount)

	rentals := l.Rentals()
	require.Len(t, rentals, 1)
	require.False(t, rentals[0].Open())

	history, err := l.HistoryFor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "Dune", history[0].BookTitle)
	require.NotNil(t, history[0].ReturnDate)
	require.True(t, history[0].IsOverdue)
}

func TestLedger_RentErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := newTestLedger(t, newFakeClock())
	addBook(t, l, "Dune", "Sci-Fi")
	addUser(t, l, "alice")

	_, err := l.Rent(ctx, "alice", "Neuromancer")
	require.Equal(t, errs.CodeBookNotFound, errs.CodeOf(err))

	_, err = l.Rent(ctx, "nobody", "Dune")
	require.Equal(t, errs.CodeUserNotFound, errs.CodeOf(err))

	// failed attempts mutate nothing
	book, err := l.Catalog().FindByTitle("Dune")
	require.NoError(t, err)
	require.True(t, book.IsAvailable)
	require.Equal(t, 0, book.RentalCount)
	require.Empty(t, l.Rentals())
}

func TestLedger_ReturnErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := newTestLedger(t, newFakeClock())
	addBook(t, l, "Dune", "Sci-Fi")
	addUser(t, l, "alice")

	_, err := l.Return(ctx, "Neuromancer")
	require.Equal(t, errs.CodeRentalNotFound, errs.CodeOf(err))

	_, err = l.Return(ctx, "Dune")
	require.Equal(t, errs.CodeRentalNotFound, errs.CodeOf(err))

	_, err = l.Rent(ctx, "alice", "Dune")
	require.NoError(t, err)
	_, err = l.Return(ctx, "Dune")
	require.NoError(t, err)

	_, err = l.Return(ctx, "Dune")
	require.Equal(t, errs.CodeBookAlreadyReturned, errs.CodeOf(err))
}

func TestLedger_HistoryEmptyVsMissingUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := newTestLedger(t, newFakeClock())
	addUser(t, l, "alice")

	history, err := l.HistoryFor(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, history)
	require.Empty(t, history)

	_, err = l.HistoryFor(ctx, "nobody")
	require.Equal(t, errs.CodeUserNotFound, errs.CodeOf(err))
}

func TestLedger_ConcurrentRentSingleWinner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := newTestLedger(t, newFakeClock())
	addBook(t, l, "Dune", "Sci-Fi")

	const callers = 16
	for i := 0; i < callers; i++ {
		addUser(t, l, "user"+string(rune('a'+i)))
	}

	start := make(chan struct{})
	results := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			<-start
			_, err := l.Rent(ctx, name, "Dune")
			results <- err
		}("user" + string(rune('a'+i)))
	}
	close(start)
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errs.CodeOf(err) == errs.CodeBookUnavailable:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, callers-1, conflicts)
}

// TestLedger_InvariantsUnderLoad hammers the ledger with random rent/return
// calls and then checks the availability invariants: a book is available iff
// no open rental references it, at most one open rental per book, and the
// rental count equals the number of rentals ever opened.
func TestLedger_InvariantsUnderLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := newTestLedger(t, newFakeClock())

	titles := []string{"Dune", "Neuromancer", "Hyperion", "Foundation", "Solaris"}
	for _, title := range titles {
		addBook(t, l, title, "Sci-Fi")
	}
	names := []string{"alice", "bob", "carol", "dave"}
	for _, name := range names {
		addUser(t, l, name)
	}

	const (
		workers = 8
		ops     = 200
	)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for i := 0; i < ops; i++ {
				title := titles[rnd.Intn(len(titles))]
				if rnd.Intn(2) == 0 {
					_, _ = l.Rent(ctx, names[rnd.Intn(len(names))], title)
				} else {
					_, _ = l.Return(ctx, title)
				}
			}
		}(int64(w))
	}
	wg.Wait()

	openByBook := make(map[int]int)
	countByBook := make(map[int]int)
	for _, r := range l.Rentals() {
		countByBook[r.BookID]++
		if r.Open() {
			openByBook[r.BookID]++
		} else {
			require.NotNil(t, r.ReturnDate)
		}
	}
	for _, b := range l.Books() {
		require.LessOrEqual(t, openByBook[b.ID], 1, "book %q", b.Title)
		require.Equal(t, openByBook[b.ID] == 0, b.IsAvailable, "book %q", b.Title)
		require.Equal(t, countByBook[b.ID], b.RentalCount, "book %q", b.Title)
	}
}

func TestOverdue_Boundary(t *testing.T) {
	t.Parallel()
	rented := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	open := model.Rental{RentalDate: rented}

	require.False(t, ledger.Overdue(open, rented.Add(ledger.LoanPeriod-time.Second)))
	require.True(t, ledger.Overdue(open, rented.Add(ledger.LoanPeriod+time.Second)))

	// a closed rental is measured to its return date, not to now
	returned := rented.Add(15 * 24 * time.Hour)
	closed := model.Rental{RentalDate: rented, ReturnDate: &returned}
	require.True(t, ledger.Overdue(closed, rented))
}

func TestCatalog_Search(t *testing.T) {
	t.Parallel()
	l := newTestLedger(t, newFakeClock())
	dune := addBook(t, l, "Dune", "Sci-Fi")
	messiah := addBook(t, l, "Dune Messiah", "Sci-Fi")
	hobbit := addBook(t, l, "The Hobbit", "Fantasy")

	c := l.Catalog()

	all := c.Search("", "")
	require.Len(t, all, 3)

	byTitle := c.Search("dune", "")
	require.Equal(t, []model.Book{dune, messiah}, byTitle)

	byGenre := c.Search("", "Fantasy")
	require.Equal(t, []model.Book{hobbit}, byGenre)

	both := c.Search("messiah", "Sci-Fi")
	require.Equal(t, []model.Book{messiah}, both)

	require.Empty(t, c.Search("dune", "Fantasy"))

	_, err := c.FindByTitle("tHe hObBiT")
	require.NoError(t, err)
	_, err = c.FindByTitle("unknown")
	require.Equal(t, errs.CodeBookNotFound, errs.CodeOf(err))
}

func TestLedger_LoadRecomputesAvailability(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := repository.NewMemory()

	// availability in storage is stale on purpose: the load derives it from
	// open rentals instead of trusting it
	bookID, err := store.CreateBook(ctx, model.Book{Title: "Dune", Author: "Frank Herbert", IsAvailable: true, RentalCount: 3})
	require.NoError(t, err)
	userID, err := store.CreateUser(ctx, model.User{Name: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	_, err = store.CreateRental(ctx, model.Rental{
		RentalUid:  "7cbb57f2-7a66-4f1b-b474-3b55a4f34c0e",
		BookID:     bookID,
		UserID:     userID,
		RentalDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	l, err := ledger.New(ctx, store, testMessages(), zap.NewNop())
	require.NoError(t, err)

	book, err := l.Catalog().FindByTitle("Dune")
	require.NoError(t, err)
	require.False(t, book.IsAvailable)
	require.Equal(t, 3, book.RentalCount)

	lendings := l.OpenLendings()
	require.Len(t, lendings, 1)
	require.Equal(t, "alice", lendings[0].User.Name)
}
