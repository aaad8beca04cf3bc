package repository

import (
	"context"
	"fmt"

	"barberosa_backend/internal/booking/transport"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new bookings repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Insert persists a validated booking submission with status pending and
// returns the stored record including its generated identifier.
func (r *Repo) Insert(ctx context.Context, req transport.BookingRequest) (Booking, error) {
	query := `
		INSERT INTO bookings (name, phone, email, service, master, date, time, price, comment, source, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	var price *int
	if req.Price > 0 {
		price = &req.Price
	}

	b := Booking{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Service: req.Service,
		Master:  req.Master,
		Date:    req.Date,
		Time:    req.Time,
		Price:   price,
		Comment: req.Comment,
		Source:  req.Source,
		Status:  StatusPending,
	}

	err := r.pool.QueryRow(ctx, query,
		b.Name, b.Phone, b.Email, b.Service, b.Master, b.Date, b.Time, b.Price, b.Comment, b.Source, b.Status,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return Booking{}, fmt.Errorf("insert booking: %w", err)
	}

	return b, nil
}
