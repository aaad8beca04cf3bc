package repository

import (
	"context"
	"time"

	"barberosa_backend/internal/booking/transport"

	"github.com/google/uuid"
)

// Booking statuses. Submissions are created as pending; later transitions
// belong to back-office tooling, not this service.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Booking is the persisted record of an accepted submission.
type Booking struct {
	ID        uuid.UUID
	Name      string
	Phone     string
	Email     string
	Service   string
	Master    string
	Date      string
	Time      string
	Price     *int
	Comment   string
	Source    string
	Status    string
	CreatedAt time.Time
}

// Repository is the primary store sink: insert-only from this service's
// point of view.
type Repository interface {
	Insert(ctx context.Context, req transport.BookingRequest) (Booking, error)
}
