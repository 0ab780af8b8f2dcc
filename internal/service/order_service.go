package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
	"github.com/iliyamo/taipei-day-trip/internal/model"
	"github.com/iliyamo/taipei-day-trip/internal/payment"
	"github.com/iliyamo/taipei-day-trip/internal/queue"
	"github.com/iliyamo/taipei-day-trip/internal/repository"
	"github.com/iliyamo/taipei-day-trip/internal/utils"
)

// orderNumberAttempts bounds regeneration after a duplicate order number.
const orderNumberAttempts = 3

// Payment messages returned to clients.
const (
	PaymentSuccess = "success"
	PaymentFailure = "failure"
)

// OrderStore is implemented by *repository.OrderRepo.
type OrderStore interface {
	CreateUnpaid(ctx context.Context, o *model.Order) error
	MarkPaidTx(ctx context.Context, tx *sql.Tx, orderID uint64) error
	InsertPaymentTx(ctx context.Context, tx *sql.Tx, p model.Payment) error
	InsertPayment(ctx context.Context, p model.Payment) error
	GetViewForUser(ctx context.Context, number string, userID uint64) (*model.OrderView, error)
}

// BookingTxDeleter is implemented by *repository.BookingRepo.
type BookingTxDeleter interface {
	DeleteTx(ctx context.Context, tx *sql.Tx, userID uint64) error
}

// EventPublisher is implemented by *queue.Publisher.
type EventPublisher interface {
	PublishOrderPaid(ctx context.Context, ev queue.OrderPaidEvent) error
}

// OrderDeps groups what OrderService needs.  Events may be nil.
type OrderDeps struct {
	DB       *sql.DB
	Orders   OrderStore
	Bookings BookingTxDeleter
	Gateway  payment.Charger
	Events   EventPublisher
	Logger   *log.Logger
	Location *time.Location
}

// OrderService turns a staged booking into a paid order.
//
// An order is inserted UNPAID and committed before the gateway is called,
// so every charge attempt has a durable order number to reconcile against.
// Only an explicit gateway success moves it to PAID, and that transition,
// the payment row and the booking delete commit together.
type OrderService struct {
	db       *sql.DB
	orders   OrderStore
	bookings BookingTxDeleter
	gateway  payment.Charger
	events   EventPublisher
	logger   *log.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewOrderService(d OrderDeps) *OrderService {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &OrderService{
		db:       d.DB,
		orders:   d.Orders,
		bookings: d.Bookings,
		gateway:  d.Gateway,
		events:   d.Events,
		logger:   d.Logger,
		loc:      loc,
		now:      time.Now,
	}
}

type AttractionRef struct {
	ID      uint64 `json:"id" validate:"gt=0"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Image   string `json:"image"`
}

type TripInput struct {
	Attraction AttractionRef `json:"attraction"`
	Date       string        `json:"date" validate:"required,tripdate"`
	Time       string        `json:"time" validate:"required,timeslot"`
}

type ContactInput struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"notblank,simpleemail"`
	Phone string `json:"phone" validate:"required,twmobile"`
}

type OrderDetail struct {
	Price   int          `json:"price" validate:"gt=0"`
	Trip    TripInput    `json:"trip"`
	Contact ContactInput `json:"contact"`
}

// SubmitInput is the body of POST /api/orders.
type SubmitInput struct {
	Prime string      `json:"prime" validate:"notblank"`
	Order OrderDetail `json:"order"`
}

// SubmitResult reports the order number and the gateway outcome.
// PaymentStatus is 0 on success and the provider's code on a decline.
type SubmitResult struct {
	OrderNumber   string
	PaymentStatus int
	Message       string
}

// Submit validates in, records an UNPAID order, charges the prime and, on
// success, commits the order as PAID while removing the user's booking.
//
// A declined card is not an error: the result carries the provider status
// and the order stays UNPAID.  When the gateway cannot be reached the
// returned error wraps apperr.ErrGatewayUnreachable and the result still
// carries the order number so the client can query it before retrying.
func (s *OrderService) Submit(ctx context.Context, userID uint64, in SubmitInput) (SubmitResult, error) {
	in.Order.Contact.Name = strings.TrimSpace(in.Order.Contact.Name)
	in.Order.Contact.Email = strings.TrimSpace(in.Order.Contact.Email)
	in.Order.Contact.Phone = strings.TrimSpace(in.Order.Contact.Phone)
	if err := validateStruct(in); err != nil {
		return SubmitResult{}, err
	}
	if err := checkTripDate(in.Order.Trip.Date, s.now(), s.loc); err != nil {
		return SubmitResult{}, err
	}

	order := model.Order{
		UserID:       userID,
		AttractionID: in.Order.Trip.Attraction.ID,
		Date:         in.Order.Trip.Date,
		TimeSlot:     in.Order.Trip.Time,
		Price:        in.Order.Price,
		ContactName:  in.Order.Contact.Name,
		ContactEmail: in.Order.Contact.Email,
		ContactPhone: in.Order.Contact.Phone,
	}
	if err := s.createUnpaid(ctx, &order); err != nil {
		return SubmitResult{}, err
	}
	res := SubmitResult{OrderNumber: order.Number}

	// The order exists now; a client disconnect must not abandon the
	// charge or the bookkeeping that follows it.
	ctx = context.WithoutCancel(ctx)

	charge, err := s.gateway.Charge(ctx, in.Prime, order.Price, payment.Cardholder{
		PhoneNumber: order.ContactPhone,
		Name:        order.ContactName,
		Email:       order.ContactEmail,
	})
	if err != nil {
		s.logger.Warnj(log.JSON{"msg": "gateway unreachable", "order_number": order.Number, "user_id": userID, "error": err.Error()})
		if !errors.Is(err, apperr.ErrGatewayUnreachable) {
			err = fmt.Errorf("%w: %w", apperr.ErrGatewayUnreachable, err)
		}
		return res, err
	}

	rec := model.Payment{
		OrderID:    order.ID,
		StatusCode: charge.StatusCode,
		Message:    charge.Message,
		RecTradeID: charge.RecTradeID,
	}
	if !charge.Success {
		if err := s.orders.InsertPayment(ctx, rec); err != nil {
			s.logger.Errorj(log.JSON{"msg": "record declined payment", "order_number": order.Number, "error": err.Error()})
		}
		s.logger.Infoj(log.JSON{"msg": "payment declined", "order_number": order.Number, "user_id": userID, "status": charge.StatusCode})
		res.PaymentStatus = charge.StatusCode
		res.Message = PaymentFailure
		return res, nil
	}

	if err := s.markPaid(ctx, order, rec); err != nil {
		// Charged but not recorded: needs manual reconciliation.
		s.logger.Errorj(log.JSON{
			"msg":          "charged order could not be marked paid",
			"order_number": order.Number,
			"user_id":      userID,
			"rec_trade_id": charge.RecTradeID,
			"error":        err.Error(),
		})
		return res, apperr.Persistence("mark order paid", err)
	}
	s.logger.Infoj(log.JSON{"msg": "order paid", "order_number": order.Number, "user_id": userID, "rec_trade_id": charge.RecTradeID})
	s.publishPaid(ctx, order, charge.RecTradeID)

	res.PaymentStatus = payment.StatusSuccess
	res.Message = PaymentSuccess
	return res, nil
}

func (s *OrderService) createUnpaid(ctx context.Context, o *model.Order) error {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		num, err := utils.NewOrderNumber(s.now().In(s.loc))
		if err != nil {
			return fmt.Errorf("generate order number: %w", err)
		}
		o.Number = num
		err = s.orders.CreateUnpaid(ctx, o)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrOrderNumberTaken):
			continue
		case errors.Is(err, repository.ErrMissingReference):
			return apperr.ErrInvalidAttraction
		default:
			return apperr.Persistence("create order", err)
		}
	}
	return apperr.Persistence("create order", repository.ErrOrderNumberTaken)
}

func (s *OrderService) markPaid(ctx context.Context, o model.Order, rec model.Payment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.orders.MarkPaidTx(ctx, tx, o.ID); err != nil {
		return err
	}
	if err := s.orders.InsertPaymentTx(ctx, tx, rec); err != nil {
		return err
	}
	if err := s.bookings.DeleteTx(ctx, tx, o.UserID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *OrderService) publishPaid(ctx context.Context, o model.Order, recTradeID string) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := s.events.PublishOrderPaid(ctx, queue.OrderPaidEvent{
		OrderNumber:  o.Number,
		UserID:       o.UserID,
		AttractionID: o.AttractionID,
		Date:         o.Date,
		Time:         o.TimeSlot,
		Price:        o.Price,
		ContactName:  o.ContactName,
		ContactEmail: o.ContactEmail,
		RecTradeID:   recTradeID,
		PaidAt:       s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.logger.Warnj(log.JSON{"msg": "publish order.paid failed", "order_number": o.Number, "error": err.Error()})
	}
}

// Get returns the user's order with the given number, or nil when there
// is none.  Another user's order is reported exactly like a missing one.
func (s *OrderService) Get(ctx context.Context, userID uint64, number string) (*model.OrderView, error) {
	if len(number) != utils.OrderNumberLen || strings.Trim(number, "0123456789") != "" {
		return nil, nil
	}
	v, err := s.orders.GetViewForUser(ctx, number, userID)
	if err != nil {
		return nil, apperr.Persistence("load order", err)
	}
	return v, nil
}
