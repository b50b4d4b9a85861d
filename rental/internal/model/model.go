package model

import (
	"time"
)

type Book struct {
	ID          int    `json:"id" db:"id"`
	Title       string `json:"title" db:"title"`
	Author      string `json:"author" db:"author"`
	ISBN        string `json:"isbn" db:"isbn"`
	Genre       string `json:"genre" db:"genre"`
	IsAvailable bool   `json:"isAvailable" db:"is_available"`
	RentalCount int    `json:"rentalCount" db:"rental_count"`
}

type User struct {
	ID    int    `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

type Rental struct {
	ID         int        `json:"-" db:"id"`
	RentalUid  string     `json:"rentalUid" db:"rental_uid"`
	BookID     int        `json:"bookId" db:"book_id"`
	UserID     int        `json:"userId" db:"user_id"`
	RentalDate time.Time  `json:"rentalDate" db:"rental_date"`
	ReturnDate *time.Time `json:"returnDate,omitempty" db:"return_date"`
	IsOverdue  bool       `json:"isOverdue" db:"is_overdue"`
}

// Open reports whether the rental has not been returned yet.
func (r Rental) Open() bool {
	return r.ReturnDate == nil
}

// RentalRecord is a single row of a user's rental history.
type RentalRecord struct {
	RentalDate time.Time  `json:"rentalDate"`
	ReturnDate *time.Time `json:"returnDate,omitempty"`
	BookTitle  string     `json:"bookTitle"`
	IsOverdue  bool       `json:"isOverdue"`
}

type BookStat struct {
	BookName    string `json:"bookName"`
	RentalCount int    `json:"rentalCount"`
	IsOverdue   bool   `json:"isOverdue"`
}

type BookStatistics struct {
	MostOverdue  *BookStat `json:"mostOverdue,omitempty"`
	MostPopular  *BookStat `json:"mostPopular,omitempty"`
	LeastPopular *BookStat `json:"leastPopular,omitempty"`
}
