package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
	"github.com/iliyamo/taipei-day-trip/internal/middleware"
	"github.com/iliyamo/taipei-day-trip/internal/model"
	"github.com/iliyamo/taipei-day-trip/internal/repository"
	"github.com/iliyamo/taipei-day-trip/internal/service"
	"github.com/iliyamo/taipei-day-trip/internal/utils"
)

func asUser(id uint64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.UserIDKey, id)
			return next(c)
		}
	}
}

func do(e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

// ---- users ----

type fakeAuth struct {
	registered []service.RegisterInput
	authErr    error
	profileErr error
}

func (f *fakeAuth) Register(_ context.Context, in service.RegisterInput) (uint64, error) {
	if in.Email == "taken@example.com" {
		return 0, apperr.ErrDuplicateEmail
	}
	f.registered = append(f.registered, in)
	return 1, nil
}

func (f *fakeAuth) Authenticate(_ context.Context, _, _ string) (uint64, error) {
	return 1, f.authErr
}

func (f *fakeAuth) Profile(_ context.Context, id uint64) (model.Profile, error) {
	return model.Profile{ID: id, Name: "Ann", Email: "ann@example.com"}, f.profileErr
}

func TestUserRoutes(t *testing.T) {
	auth := &fakeAuth{}
	h := NewUserHandler(auth, utils.NewTokenIssuer("s3cret", 7))
	e := echo.New()
	e.POST("/api/user", h.Register)
	e.PUT("/api/user/auth", h.Login)
	e.GET("/api/user/auth", h.Me)
	e.GET("/api/user/auth/as7", h.Me, asUser(7))

	rec, body := do(e, http.MethodPost, "/api/user", `{"name":"Ann","email":"ann@example.com","password":"pw"}`)
	if rec.Code != http.StatusOK || body["ok"] != true || len(auth.registered) != 1 {
		t.Fatalf("register: %d %v", rec.Code, body)
	}
	rec, body = do(e, http.MethodPost, "/api/user", `{"name":"Ann","email":"taken@example.com","password":"pw"}`)
	if rec.Code != http.StatusBadRequest || body["code"] != "duplicate_email" || body["error"] != true {
		t.Fatalf("duplicate register: %d %v", rec.Code, body)
	}
	rec, _ = do(e, http.MethodPost, "/api/user", `{"name":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: %d", rec.Code)
	}

	rec, body = do(e, http.MethodPut, "/api/user/auth", `{"email":"ann@example.com","password":"pw"}`)
	data, _ := body["data"].(map[string]any)
	if rec.Code != http.StatusOK || data["token"] == "" || data["token"] == nil {
		t.Fatalf("login: %d %v", rec.Code, body)
	}
	auth.authErr = apperr.ErrInvalidCredentials
	rec, body = do(e, http.MethodPut, "/api/user/auth", `{"email":"ann@example.com","password":"bad"}`)
	if rec.Code != http.StatusBadRequest || body["code"] != "invalid_credentials" {
		t.Fatalf("bad login: %d %v", rec.Code, body)
	}

	rec, body = do(e, http.MethodGet, "/api/user/auth", "")
	if rec.Code != http.StatusOK || body["data"] != nil {
		t.Fatalf("anonymous me: %d %v", rec.Code, body)
	}
	rec, body = do(e, http.MethodGet, "/api/user/auth/as7", "")
	data, _ = body["data"].(map[string]any)
	if rec.Code != http.StatusOK || data["id"] != float64(7) || data["email"] != "ann@example.com" {
		t.Fatalf("signed-in me: %d %v", rec.Code, body)
	}
}

// ---- bookings ----

type fakeBookingManager struct {
	view    *model.BookingView
	setErr  error
	cleared int
}

func (f *fakeBookingManager) Set(_ context.Context, _ uint64, _ service.BookingInput) error { return f.setErr }
func (f *fakeBookingManager) Get(_ context.Context, _ uint64) (*model.BookingView, error) {
	return f.view, nil
}
func (f *fakeBookingManager) Clear(_ context.Context, _ uint64) error { f.cleared++; return nil }

func TestBookingRoutes(t *testing.T) {
	fb := &fakeBookingManager{}
	h := NewBookingHandler(fb)
	e := echo.New()
	g := e.Group("/api", asUser(1))
	g.GET("/booking", h.Get)
	g.POST("/booking", h.Set)
	g.DELETE("/booking", h.Delete)
	e.GET("/anon/booking", h.Get)

	rec, body := do(e, http.MethodGet, "/api/booking", "")
	if rec.Code != http.StatusOK || body["data"] != nil {
		t.Fatalf("empty booking: %d %v", rec.Code, body)
	}
	if _, ok := body["data"]; !ok {
		t.Fatal(`empty booking must still carry a "data" key`)
	}

	fb.view = &model.BookingView{Attraction: model.AttractionSummary{ID: 10, Name: "Beitou"}, Date: "2030-01-01", Time: "morning", Price: 2000}
	_, body = do(e, http.MethodGet, "/api/booking", "")
	data, _ := body["data"].(map[string]any)
	attraction, _ := data["attraction"].(map[string]any)
	if attraction["name"] != "Beitou" || data["price"] != float64(2000) {
		t.Fatalf("booking view: %v", body)
	}

	fb.setErr = apperr.ErrInvalidAttraction
	rec, body = do(e, http.MethodPost, "/api/booking", `{"attractionId":99,"date":"2030-01-01","time":"morning","price":2000}`)
	if rec.Code != http.StatusBadRequest || body["code"] != "invalid_attraction" {
		t.Fatalf("invalid attraction: %d %v", rec.Code, body)
	}

	rec, body = do(e, http.MethodDelete, "/api/booking", "")
	if rec.Code != http.StatusOK || body["ok"] != true || fb.cleared != 1 {
		t.Fatalf("delete: %d %v", rec.Code, body)
	}

	rec, body = do(e, http.MethodGet, "/anon/booking", "")
	if rec.Code != http.StatusForbidden || body["code"] != "unauthenticated" {
		t.Fatalf("anonymous booking: %d %v", rec.Code, body)
	}
}

// ---- orders ----

type fakeOrderWorkflow struct {
	res  service.SubmitResult
	err  error
	view *model.OrderView
}

func (f *fakeOrderWorkflow) Submit(_ context.Context, _ uint64, _ service.SubmitInput) (service.SubmitResult, error) {
	return f.res, f.err
}

func (f *fakeOrderWorkflow) Get(_ context.Context, _ uint64, number string) (*model.OrderView, error) {
	if f.view != nil && f.view.Number == number {
		return f.view, nil
	}
	return nil, nil
}

const submitBody = `{"prime":"p","order":{"price":2000,"trip":{"attraction":{"id":10},"date":"2030-01-01","time":"morning"},
	"contact":{"name":"Ann","email":"ann@example.com","phone":"0912345678"}}}`

func TestOrderSubmitResponses(t *testing.T) {
	tests := []struct {
		name       string
		res        service.SubmitResult
		err        error
		wantStatus int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:       "paid",
			res:        service.SubmitResult{OrderNumber: "202501011200001234", PaymentStatus: 0, Message: "success"},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				data, _ := body["data"].(map[string]any)
				pay, _ := data["payment"].(map[string]any)
				if data["number"] != "202501011200001234" || pay["status"] != float64(0) || pay["message"] != "success" {
					t.Fatalf("unexpected body %v", body)
				}
			},
		},
		{
			name:       "declined",
			res:        service.SubmitResult{OrderNumber: "202501011200001234", PaymentStatus: 10003, Message: "failure"},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				data, _ := body["data"].(map[string]any)
				pay, _ := data["payment"].(map[string]any)
				if pay["status"] != float64(10003) {
					t.Fatalf("unexpected body %v", body)
				}
			},
		},
		{
			name:       "gateway unreachable",
			res:        service.SubmitResult{OrderNumber: "202501011200001234"},
			err:        apperr.ErrGatewayUnreachable,
			wantStatus: http.StatusBadGateway,
			check: func(t *testing.T, body map[string]any) {
				if body["number"] != "202501011200001234" || body["code"] != "gateway_unreachable" {
					t.Fatalf("unexpected body %v", body)
				}
			},
		},
		{
			name:       "validation",
			err:        apperr.Validation("phone must be a 10 digit mobile number starting with 09"),
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				if body["code"] != "invalid_input" || !strings.Contains(body["message"].(string), "phone") {
					t.Fatalf("unexpected body %v", body)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOrderHandler(&fakeOrderWorkflow{res: tt.res, err: tt.err})
			e := echo.New()
			e.POST("/api/orders", h.Submit, asUser(1))
			rec, body := do(e, http.MethodPost, "/api/orders", submitBody)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body)
			}
			tt.check(t, body)
		})
	}
}

func TestOrderGet(t *testing.T) {
	num := "202501011200001234"
	h := NewOrderHandler(&fakeOrderWorkflow{view: &model.OrderView{Number: num, Price: 2000, Status: 1}})
	e := echo.New()
	e.GET("/api/order/:orderNumber", h.Get, asUser(1))

	_, body := do(e, http.MethodGet, "/api/order/"+num, "")
	data, _ := body["data"].(map[string]any)
	if data["status"] != float64(1) || data["number"] != num {
		t.Fatalf("unexpected body %v", body)
	}
	_, body = do(e, http.MethodGet, "/api/order/000000000000000000", "")
	if body["data"] != nil {
		t.Fatalf("unknown order must be null: %v", body)
	}
}

// ---- attractions ----

type fakeAttractionReader struct{}

func (fakeAttractionReader) List(_ context.Context, page int, _ string) (repository.AttractionPage, error) {
	next := page + 1
	return repository.AttractionPage{NextPage: &next, Data: []model.Attraction{{ID: 1, Name: "Beitou", Images: []string{}}}}, nil
}

func (fakeAttractionReader) GetByID(_ context.Context, id uint64) (model.Attraction, error) {
	if id != 1 {
		return model.Attraction{}, repository.ErrAttractionNotFound
	}
	return model.Attraction{ID: 1, Name: "Beitou", Images: []string{}}, nil
}

func (fakeAttractionReader) MRTs(context.Context) ([]string, error) { return []string{"北投", "淡水"}, nil }

func TestAttractionRoutes(t *testing.T) {
	h := NewAttractionHandler(fakeAttractionReader{})
	e := echo.New()
	e.GET("/api/attractions", h.List)
	e.GET("/api/attractions/:id", h.Get)
	e.GET("/api/mrts", h.MRTs)

	rec, body := do(e, http.MethodGet, "/api/attractions?page=2", "")
	if rec.Code != http.StatusOK || body["nextPage"] != float64(3) {
		t.Fatalf("list: %d %v", rec.Code, body)
	}
	rec, _ = do(e, http.MethodGet, "/api/attractions?page=-1", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative page: %d", rec.Code)
	}
	rec, body = do(e, http.MethodGet, "/api/attractions/2", "")
	if rec.Code != http.StatusBadRequest || body["code"] != "not_found" {
		t.Fatalf("unknown attraction: %d %v", rec.Code, body)
	}
	rec, body = do(e, http.MethodGet, "/api/mrts", "")
	if list, _ := body["data"].([]any); rec.Code != http.StatusOK || len(list) != 2 {
		t.Fatalf("mrts: %d %v", rec.Code, body)
	}
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", Health(fakePinger{}))
	e.GET("/down", Health(fakePinger{err: context.DeadlineExceeded}))

	if rec, _ := do(e, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body)
	}
	if rec, _ := do(e, http.MethodGet, "/down", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("down: %d", rec.Code)
	}
}
