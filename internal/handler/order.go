package handler

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
	"github.com/iliyamo/taipei-day-trip/internal/model"
	"github.com/iliyamo/taipei-day-trip/internal/service"
)

// OrderWorkflow is implemented by *service.OrderService.
type OrderWorkflow interface {
	Submit(ctx context.Context, userID uint64, in service.SubmitInput) (service.SubmitResult, error)
	Get(ctx context.Context, userID uint64, number string) (*model.OrderView, error)
}

// OrderHandler serves POST /api/orders and GET /api/order/:orderNumber.
type OrderHandler struct {
	Orders OrderWorkflow
}

func NewOrderHandler(o OrderWorkflow) *OrderHandler { return &OrderHandler{Orders: o} }

type paymentPart struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type submitResp struct {
	Number  string      `json:"number"`
	Payment paymentPart `json:"payment"`
}

// Submit: POST /api/orders.
//
// A declined card is a 200 with payment.status != 0.  An unreachable
// gateway is a 502 that still names the order so the client can look it
// up instead of paying twice.
func (h *OrderHandler) Submit(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return writeError(c, err)
	}
	var req service.SubmitInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	// no extra deadline: the gateway client carries its own timeout
	res, err := h.Orders.Submit(c.Request().Context(), uid, req)
	if errors.Is(err, apperr.ErrGatewayUnreachable) {
		body := errorBody(err)
		body["number"] = res.OrderNumber
		c.Logger().Warnf("order %s: %v", res.OrderNumber, err)
		return c.JSON(apperr.HTTPStatus(err), body)
	}
	if err != nil {
		return writeError(c, err)
	}
	return replyData(c, submitResp{
		Number:  res.OrderNumber,
		Payment: paymentPart{Status: res.PaymentStatus, Message: res.Message},
	})
}

// Get: GET /api/order/:orderNumber.  {"data": null} for unknown numbers
// and for orders of other users.
func (h *OrderHandler) Get(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	v, err := h.Orders.Get(ctx, uid, c.Param("orderNumber"))
	if err != nil {
		return writeError(c, err)
	}
	return replyData(c, v)
}
