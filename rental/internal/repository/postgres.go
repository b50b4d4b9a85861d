package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/rental-service/rental/internal/model"
)

const (
	booksTableName   = `books`
	usersTableName   = `users`
	rentalsTableName = `rentals`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Postgres struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewPostgres(db *sqlx.DB, log *zap.Logger) (*Postgres, error) {
	return &Postgres{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

func (p *Postgres) LoadBooks(ctx context.Context) ([]model.Book, error) {
	query, args, err := qb.Select("id", "title", "author", "isbn", "genre", "is_available", "rental_count").
		From(booksTableName).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var books []model.Book
	if err := p.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, err
	}
	return books, nil
}

func (p *Postgres) LoadUsers(ctx context.Context) ([]model.User, error) {
	query, args, err := qb.Select("id", "name", "email").
		From(usersTableName).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var users []model.User
	if err := p.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, err
	}
	return users, nil
}

func (p *Postgres) LoadRentals(ctx context.Context) ([]model.Rental, error) {
	query, args, err := qb.Select("id", "rental_uid", "book_id", "user_id", "rental_date", "return_date", "is_overdue").
		From(rentalsTableName).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var rentals []model.Rental
	if err := p.db.SelectContext(ctx, &rentals, query, args...); err != nil {
		return nil, err
	}
	return rentals, nil
}

func (p *Postgres) CreateBook(ctx context.Context, book model.Book) (int, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns("title", "author", "isbn", "genre", "is_available", "rental_count").
		Values(book.Title, book.Author, book.ISBN, book.Genre, book.IsAvailable, book.RentalCount).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return 0, err
	}
	var id int
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		p.log.Error("CreateBook", zap.String("q", query), zap.Any("args", args))
		return 0, err
	}
	return id, nil
}

func (p *Postgres) CreateUser(ctx context.Context, user model.User) (int, error) {
	query, args, err := qb.Insert(usersTableName).
		Columns("name", "email").
		Values(user.Name, user.Email).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return 0, err
	}
	var id int
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		p.log.Error("CreateUser", zap.String("q", query), zap.Any("args", args))
		return 0, err
	}
	return id, nil
}

func (p *Postgres) CreateRental(ctx context.Context, rental model.Rental) (int, error) {
	query, args, err := qb.Insert(rentalsTableName).
		Columns("rental_uid", "book_id", "user_id", "rental_date", "return_date", "is_overdue").
		Values(rental.RentalUid, rental.BookID, rental.UserID, rental.RentalDate, rental.ReturnDate, rental.IsOverdue).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return 0, err
	}
	var id int
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		// the partial unique index allows at most one open rental per book
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		p.log.Error("CreateRental", zap.String("q", query), zap.Any("args", args))
		return 0, err
	}
	return id, nil
}

func (p *Postgres) CloseRental(ctx context.Context, rentalID int, returnedAt time.Time, overdue bool) error {
	query, args, err := qb.Update(rentalsTableName).
		Set("return_date", returnedAt).
		Set("is_overdue", overdue).
		Where(sq.Eq{"id": rentalID}).
		Where(sq.Eq{"return_date": nil}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(ErrNotFound, "open rental %d", rentalID)
	}
	return nil
}

func (p *Postgres) SetBookState(ctx context.Context, bookID int, available bool, rentalCount int) error {
	query, args, err := qb.Update(booksTableName).
		Set("is_available", available).
		Set("rental_count", rentalCount).
		Where(sq.Eq{"id": bookID}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(ErrNotFound, "book %d", bookID)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
