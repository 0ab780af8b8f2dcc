package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/taipei-day-trip/internal/model"
)

// BookingRepo stores the single staged booking each user may have.  The
// booking table is keyed by user_id, so writes are upserts and there is
// never more than one row per user.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Upsert replaces the user's booking in a single statement.  A concurrent
// reader sees either the old or the new row, never neither.  A missing
// attraction surfaces as ErrMissingReference.
func (r *BookingRepo) Upsert(ctx context.Context, b model.Booking) error {
	const q = `INSERT INTO booking (user_id, attraction_id, date, time, price)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			attraction_id = VALUES(attraction_id),
			date = VALUES(date),
			time = VALUES(time),
			price = VALUES(price)`
	_, err := r.db.ExecContext(ctx, q, b.UserID, b.AttractionID, b.Date, b.TimeSlot, b.Price)
	if isMissingReference(err) {
		return ErrMissingReference
	}
	return err
}

// GetView returns the user's booking joined with its attraction, or nil
// when the user has nothing staged.
func (r *BookingRepo) GetView(ctx context.Context, userID uint64) (*model.BookingView, error) {
	q := `SELECT a.id, a.name, a.address, ` + firstImageSQL + `,
			DATE_FORMAT(b.date, '%Y-%m-%d'), b.time, b.price
		FROM booking b
		JOIN attractions a ON a.id = b.attraction_id
		WHERE b.user_id = ?`
	var v model.BookingView
	err := r.db.QueryRowContext(ctx, q, userID).Scan(
		&v.Attraction.ID, &v.Attraction.Name, &v.Attraction.Address, &v.Attraction.Image,
		&v.Date, &v.Time, &v.Price,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Delete removes the user's booking.  Deleting nothing is not an error.
func (r *BookingRepo) Delete(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM booking WHERE user_id = ?`, userID)
	return err
}

// DeleteTx removes the user's booking inside the caller's transaction.
func (r *BookingRepo) DeleteTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM booking WHERE user_id = ?`, userID)
	return err
}
