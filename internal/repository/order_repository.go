package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/taipei-day-trip/internal/model"
)

// ErrOrderNumberTaken is returned by CreateUnpaid when the generated order
// number collides with an existing one.  Callers regenerate and retry.
var ErrOrderNumberTaken = errors.New("order number already exists")

// OrderRepo persists orders and their payment records.  Orders are
// inserted UNPAID in their own statement; the transition to PAID happens
// inside a caller-owned transaction together with the payment row and
// the booking delete.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the handle so the service layer can begin transactions.
func (r *OrderRepo) DB() *sql.DB { return r.db }

// CreateUnpaid inserts o with status UNPAID and sets o.ID.  A duplicate
// order number yields ErrOrderNumberTaken; an unknown attraction or user
// yields ErrMissingReference.
func (r *OrderRepo) CreateUnpaid(ctx context.Context, o *model.Order) error {
	const q = `INSERT INTO orders
		(order_number, user_id, attraction_id, date, time, price,
		 contact_name, contact_email, contact_phone, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'UNPAID')`
	res, err := r.db.ExecContext(ctx, q,
		o.Number, o.UserID, o.AttractionID, o.Date, o.TimeSlot, o.Price,
		o.ContactName, o.ContactEmail, o.ContactPhone)
	if err != nil {
		switch {
		case isDuplicate(err):
			return ErrOrderNumberTaken
		case isMissingReference(err):
			return ErrMissingReference
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	o.Status = model.OrderUnpaid
	return nil
}

// MarkPaidTx flips an UNPAID order to PAID.  The WHERE clause makes the
// transition one-way: if the order is already PAID (or gone) no row
// changes and ErrConflict is returned so the caller rolls back.
func (r *OrderRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, orderID uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = 'PAID' WHERE id = ? AND status = 'UNPAID'`, orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrConflict
	}
	return nil
}

const insertPayment = `INSERT INTO payments (order_id, status_code, message, rec_trade_id) VALUES (?, ?, ?, ?)`

// InsertPaymentTx records a gateway outcome inside the caller's transaction.
func (r *OrderRepo) InsertPaymentTx(ctx context.Context, tx *sql.Tx, p model.Payment) error {
	_, err := tx.ExecContext(ctx, insertPayment, p.OrderID, p.StatusCode, p.Message, nullString(p.RecTradeID))
	return err
}

// InsertPayment records a gateway outcome on its own, used for declines.
func (r *OrderRepo) InsertPayment(ctx context.Context, p model.Payment) error {
	_, err := r.db.ExecContext(ctx, insertPayment, p.OrderID, p.StatusCode, p.Message, nullString(p.RecTradeID))
	return err
}

// GetViewForUser returns the order with the given number if it belongs to
// userID, or nil when there is no such order for that user.  Orders of
// other users are indistinguishable from missing ones.
func (r *OrderRepo) GetViewForUser(ctx context.Context, number string, userID uint64) (*model.OrderView, error) {
	q := `SELECT o.order_number, o.price, a.id, a.name, a.address, ` + firstImageSQL + `,
			DATE_FORMAT(o.date, '%Y-%m-%d'), o.time,
			o.contact_name, o.contact_email, o.contact_phone, o.status
		FROM orders o
		JOIN attractions a ON a.id = o.attraction_id
		WHERE o.order_number = ? AND o.user_id = ?`
	var (
		v      model.OrderView
		status string
	)
	err := r.db.QueryRowContext(ctx, q, number, userID).Scan(
		&v.Number, &v.Price,
		&v.Trip.Attraction.ID, &v.Trip.Attraction.Name, &v.Trip.Attraction.Address, &v.Trip.Attraction.Image,
		&v.Trip.Date, &v.Trip.Time,
		&v.Contact.Name, &v.Contact.Email, &v.Contact.Phone, &status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v.Status = model.PaidFlag(status)
	return &v, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
