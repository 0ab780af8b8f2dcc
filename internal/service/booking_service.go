package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
	"github.com/iliyamo/taipei-day-trip/internal/model"
	"github.com/iliyamo/taipei-day-trip/internal/repository"
)

// BookingStore is implemented by *repository.BookingRepo.
type BookingStore interface {
	Upsert(ctx context.Context, b model.Booking) error
	GetView(ctx context.Context, userID uint64) (*model.BookingView, error)
	Delete(ctx context.Context, userID uint64) error
}

// AttractionChecker is implemented by *repository.AttractionRepo.
type AttractionChecker interface {
	Exists(ctx context.Context, id uint64) (bool, error)
}

// BookingService manages the one pending booking each user may stage
// before checkout.
type BookingService struct {
	bookings    BookingStore
	attractions AttractionChecker
	loc         *time.Location
	now         func() time.Time
}

func NewBookingService(bookings BookingStore, attractions AttractionChecker, loc *time.Location) *BookingService {
	return &BookingService{bookings: bookings, attractions: attractions, loc: loc, now: time.Now}
}

type BookingInput struct {
	AttractionID uint64 `json:"attractionId" validate:"gt=0"`
	Date         string `json:"date" validate:"required,tripdate"`
	Time         string `json:"time" validate:"required,timeslot"`
	Price        int    `json:"price" validate:"gt=0"`
}

// Set replaces the user's booking.  The attraction must exist.
func (s *BookingService) Set(ctx context.Context, userID uint64, in BookingInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	if err := checkTripDate(in.Date, s.now(), s.loc); err != nil {
		return err
	}
	ok, err := s.attractions.Exists(ctx, in.AttractionID)
	if err != nil {
		return apperr.Persistence("check attraction", err)
	}
	if !ok {
		return apperr.ErrInvalidAttraction
	}
	err = s.bookings.Upsert(ctx, model.Booking{
		UserID:       userID,
		AttractionID: in.AttractionID,
		Date:         in.Date,
		TimeSlot:     in.Time,
		Price:        in.Price,
	})
	// the attraction can vanish between the check and the insert
	if errors.Is(err, repository.ErrMissingReference) {
		return apperr.ErrInvalidAttraction
	}
	if err != nil {
		return apperr.Persistence("upsert booking", err)
	}
	return nil
}

// Get returns the staged booking or nil when there is none.
func (s *BookingService) Get(ctx context.Context, userID uint64) (*model.BookingView, error) {
	v, err := s.bookings.GetView(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence("load booking", err)
	}
	return v, nil
}

// Clear removes the staged booking.  Clearing twice is fine.
func (s *BookingService) Clear(ctx context.Context, userID uint64) error {
	if err := s.bookings.Delete(ctx, userID); err != nil {
		return apperr.Persistence("delete booking", err)
	}
	return nil
}
