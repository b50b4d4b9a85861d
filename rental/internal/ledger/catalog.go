package ledger

import (
	"sort"
	"strings"

	"github.com/Astemirdum/rental-service/rental/internal/errs"
	"github.com/Astemirdum/rental-service/rental/internal/model"
)

// Catalog is the read-only lookup surface over the ledger's book state.
type Catalog struct {
	l *Ledger
}

func (l *Ledger) Catalog() *Catalog {
	return &Catalog{l: l}
}

// Search returns books whose title contains titleFilter (case-insensitive)
// and whose genre equals genreFilter; an empty filter matches all. Results
// are ordered by id.
func (c *Catalog) Search(titleFilter, genreFilter string) []model.Book {
	tf := strings.ToLower(titleFilter)

	c.l.mu.RLock()
	defer c.l.mu.RUnlock()

	books := make([]model.Book, 0, len(c.l.books))
	for _, b := range c.l.books {
		if tf != "" && !strings.Contains(strings.ToLower(b.Title), tf) {
			continue
		}
		if genreFilter != "" && b.Genre != genreFilter {
			continue
		}
		books = append(books, *b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books
}

// FindByTitle resolves a book by case-insensitive exact title, the same
// matching Rent and Return use.
func (c *Catalog) FindByTitle(title string) (model.Book, error) {
	c.l.mu.RLock()
	defer c.l.mu.RUnlock()

	id, ok := c.l.bookByTitle[titleKey(title)]
	if !ok {
		return model.Book{}, c.l.msgs.New(errs.CodeBookNotFound)
	}
	return *c.l.books[id], nil
}
