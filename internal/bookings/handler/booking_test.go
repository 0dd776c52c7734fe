package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"gotour/internal/bookings/events"
	apperrors "gotour/pkg/errors"
	"gotour/pkg/client"
	httputil "gotour/pkg/http"
	"gotour/pkg/locale"
	"gotour/pkg/logger"
	"gotour/pkg/middleware"
	"gotour/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Mock service for testing
type mockBookingService struct {
	createFunc        func(ctx context.Context, actor model.Actor, kind model.BookingKind, req *model.BookingRequest) (*model.Booking, error)
	getByIDFunc       func(ctx context.Context, actor model.Actor, kind model.BookingKind, id string) (*model.Booking, error)
	getDetailsFunc    func(ctx context.Context, actor model.Actor, kind model.BookingKind, id string) (*model.Booking, error)
	listMineFunc      func(ctx context.Context, actor model.Actor, query model.MyBookingsQuery, loc locale.Locale) ([]model.BookingView, int, error)
	listAllFunc       func(ctx context.Context, actor model.Actor, kind model.BookingKind, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	updateStatusFunc  func(ctx context.Context, actor model.Actor, kind model.BookingKind, id, status string) (*model.Booking, error)
	updatePaymentFunc func(ctx context.Context, actor model.Actor, kind model.BookingKind, id, status string) (*model.Booking, error)
	cancelFunc        func(ctx context.Context, actor model.Actor, kind model.BookingKind, id, reason string) (*model.Booking, error)
	deleteFunc        func(ctx context.Context, actor model.Actor, kind model.BookingKind, id string) error
}

func (m *mockBookingService) Create(ctx context.Context, actor model.Actor, kind model.BookingKind, req *model.BookingRequest) (*model.Booking, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, actor, kind, req)
	}
	return &model.Booking{Kind: kind, UserID: actor.UserID}, nil
}

func (m *mockBookingService) GetByID(ctx context.Context, actor model.Actor, kind model.BookingKind, id string) (*model.Booking, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, actor, kind, id)
	}
	return &model.Booking{ID: id, Kind: kind}, nil
}

func (m *mockBookingService) GetDetails(ctx context.Context, actor model.Actor, kind model.BookingKind, id string) (*model.Booking, error) {
	if m.getDetailsFunc != nil {
		return m.getDetailsFunc(ctx, actor, kind, id)
	}
	return &model.Booking{ID: id, Kind: kind}, nil
}

func (m *mockBookingService) ListMine(ctx context.Context, actor model.Actor, query model.MyBookingsQuery, loc locale.Locale) ([]model.BookingView, int, error) {
	if m.listMineFunc != nil {
		return m.listMineFunc(ctx, actor, query, loc)
	}
	return []model.BookingView{}, 0, nil
}

func (m *mockBookingService) ListAll(ctx context.Context, actor model.Actor, kind model.BookingKind, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if m.listAllFunc != nil {
		return m.listAllFunc(ctx, actor, kind, filter, limit, offset)
	}
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) UpdateStatus(ctx context.Context, actor model.Actor, kind model.BookingKind, id, status string) (*model.Booking, error) {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, actor, kind, id, status)
	}
	return &model.Booking{ID: id, Status: status}, nil
}

func (m *mockBookingService) UpdatePaymentStatus(ctx context.Context, actor model.Actor, kind model.BookingKind, id, status string) (*model.Booking, error) {
	if m.updatePaymentFunc != nil {
		return m.updatePaymentFunc(ctx, actor, kind, id, status)
	}
	return &model.Booking{ID: id, PaymentStatus: status}, nil
}

func (m *mockBookingService) Cancel(ctx context.Context, actor model.Actor, kind model.BookingKind, id, reason string) (*model.Booking, error) {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, actor, kind, id, reason)
	}
	return &model.Booking{ID: id, Status: model.StatusCancelled, CancellationReason: reason}, nil
}

func (m *mockBookingService) Delete(ctx context.Context, actor model.Actor, kind model.BookingKind, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, actor, kind, id)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		Output:    io.Discard,
		AddSource: false,
		Service:   "test",
	})
}

// newServer serves the booking routes behind the gateway and request id
// middleware, like the application stack does.
func newServer(t *testing.T, svc *mockBookingService) *httptest.Server {
	t.Helper()
	log := testLogger()

	router := httprouter.New()
	NewBookingHandler(svc, log, locale.Vietnamese).RegisterRoutes(router)

	var h http.Handler = router
	h = middleware.GatewayActor("", log)(h)
	h = middleware.RequestLogging(log, nil)(h)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

type envelope[T any] struct {
	Data  T   `json:"data"`
	Count int `json:"count"`
}

// ────────────────────────────────────────────────
// Routes
// ────────────────────────────────────────────────

func TestCreate(t *testing.T) {
	var gotKind model.BookingKind
	var gotReq *model.BookingRequest
	var gotRequestID string
	svc := &mockBookingService{
		createFunc: func(ctx context.Context, actor model.Actor, kind model.BookingKind, req *model.BookingRequest) (*model.Booking, error) {
			gotKind, gotReq = kind, req
			gotRequestID = events.RequestIDFromContext(ctx)
			assert.Equal(t, "user-1", actor.UserID)
			return &model.Booking{ID: "b1", Kind: kind, BookingReference: "TOR-ABC123"}, nil
		},
	}
	srv := newServer(t, svc)
	c := client.NewBookingClient(srv.URL, "user-1", "user").WithHeader(middleware.RequestIDHeader, "req-42")

	resp, err := c.Create(context.Background(), "tour", map[string]any{
		"tour_id":    "665f1c2e8b3e4a0000000001",
		"start_date": "2024-07-01",
		"guests":     map[string]int{"adults": 2, "children": 1},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(resp.Body))

	var body envelope[model.Booking]
	require.NoError(t, resp.DecodeJSON(&body))
	assert.Equal(t, "TOR-ABC123", body.Data.BookingReference)
	assert.Equal(t, model.KindTour, gotKind)
	assert.Equal(t, 3, gotReq.Guests.Total())
	assert.Equal(t, "req-42", gotRequestID)
}

func TestCreate_InvalidBody(t *testing.T) {
	srv := newServer(t, &mockBookingService{})

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/bookings/tour", strings.NewReader("{not json"))
	require.NoError(t, err)
	req.Header.Set(middleware.UserIDHeader, "user-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRequiresGatewayIdentity(t *testing.T) {
	srv := newServer(t, &mockBookingService{})

	resp, err := client.NewBookingClient(srv.URL, "", "").ListMine(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListMine(t *testing.T) {
	var gotQuery model.MyBookingsQuery
	var gotLocale locale.Locale
	svc := &mockBookingService{
		listMineFunc: func(_ context.Context, _ model.Actor, query model.MyBookingsQuery, loc locale.Locale) ([]model.BookingView, int, error) {
			gotQuery, gotLocale = query, loc
			return []model.BookingView{{ID: "h1", Kind: model.KindHotel}, {ID: "t1", Kind: model.KindTour}}, 2, nil
		},
		listAllFunc: func(context.Context, model.Actor, model.BookingKind, model.BookingFilter, int, int64) ([]*model.Booking, int64, error) {
			t.Error("/me must not reach the admin listing")
			return nil, 0, nil
		},
	}
	srv := newServer(t, svc)
	c := client.NewBookingClient(srv.URL, "user-1", "user").WithHeader("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.ListMine(context.Background(), "hotel")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body envelope[[]model.BookingView]
	require.NoError(t, resp.DecodeJSON(&body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "h1", body.Data[0].ID)
	assert.Equal(t, model.MyBookingsQuery{Type: "hotel"}, gotQuery, "no pagination unless asked")
	assert.Equal(t, locale.English, gotLocale)
	assert.Equal(t, "en", resp.Header.Get("Content-Language"))
}

func TestListMine_DefaultLocaleAndInvalidFilter(t *testing.T) {
	var gotLocale locale.Locale
	svc := &mockBookingService{
		listMineFunc: func(_ context.Context, _ model.Actor, query model.MyBookingsQuery, loc locale.Locale) ([]model.BookingView, int, error) {
			gotLocale = loc
			if query.Type == "cruise" {
				return nil, 0, apperrors.InvalidInput("Invalid booking type filter")
			}
			return nil, 0, nil
		},
	}
	srv := newServer(t, svc)
	c := client.NewBookingClient(srv.URL, "user-1", "user")

	resp, err := c.ListMine(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, locale.Vietnamese, gotLocale)

	resp, err = c.ListMine(context.Background(), "cruise")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid booking type filter", client.GetErrorMessage(resp))
}

func TestListAll_Pagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantCode   int
		wantLimit  int
		wantOffset int64
	}{
		{"defaults", "", http.StatusOK, 10, 0},
		{"explicit", "?limit=25&offset=50&status=pending", http.StatusOK, 25, 50},
		{"limit capped", "?limit=1000", http.StatusOK, 100, 0},
		{"negative offset", "?offset=-5", http.StatusOK, 10, 0},
		{"bad limit", "?limit=abc", http.StatusBadRequest, 0, 0},
		{"bad offset", "?offset=1.5", http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLimit int
			var gotOffset int64
			svc := &mockBookingService{
				listAllFunc: func(_ context.Context, actor model.Actor, kind model.BookingKind, _ model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
					assert.True(t, actor.IsAdmin())
					assert.Equal(t, model.KindHotel, kind)
					gotLimit, gotOffset = limit, offset
					return []*model.Booking{{ID: "a"}}, 31, nil
				},
			}
			srv := newServer(t, svc)

			req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/bookings/hotel"+tt.query, nil)
			require.NoError(t, err)
			req.Header.Set(middleware.UserIDHeader, "admin-1")
			req.Header.Set(middleware.UserRoleHeader, "admin")
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, tt.wantLimit, gotLimit)
				assert.Equal(t, tt.wantOffset, gotOffset)
			}
		})
	}
}

func TestListMine_StatusAndPage(t *testing.T) {
	var gotQuery model.MyBookingsQuery
	svc := &mockBookingService{
		listMineFunc: func(_ context.Context, _ model.Actor, query model.MyBookingsQuery, _ locale.Locale) ([]model.BookingView, int, error) {
			gotQuery = query
			return []model.BookingView{{ID: "t3", Kind: model.KindTour}}, 7, nil
		},
	}
	srv := newServer(t, svc)
	c := client.NewBookingClient(srv.URL, "user-1", "user")

	resp, err := c.ListMineQuery(context.Background(), url.Values{
		"type":   {"tour"},
		"status": {"confirmed"},
		"limit":  {"5"},
		"offset": {"5"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Body))

	var body httputil.PaginatedResponse
	require.NoError(t, resp.DecodeJSON(&body))
	assert.Equal(t, int64(7), body.TotalCount)
	assert.Equal(t, 5, body.Limit)
	assert.Equal(t, int64(5), body.Offset)
	assert.Equal(t, model.MyBookingsQuery{Type: "tour", Status: "confirmed", Limit: 5, Offset: 5}, gotQuery)
}

func TestListAll_Filters(t *testing.T) {
	tests := []struct {
		name       string
		query      url.Values
		wantCode   int
		wantFilter model.BookingFilter
	}{
		{
			name: "every filter",
			query: url.Values{
				"status":         {"confirmed"},
				"payment_status": {"paid"},
				"user_id":        {"user-9"},
				"from":           {"2024-01-01"},
				"to":             {"2024-01-31"},
			},
			wantCode: http.StatusOK,
			wantFilter: model.BookingFilter{
				Status:        "confirmed",
				PaymentStatus: "paid",
				UserID:        "user-9",
				From:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				To:            time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC),
			},
		},
		{name: "no filters", query: url.Values{}, wantCode: http.StatusOK},
		{name: "bad date", query: url.Values{"from": {"last week"}}, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotFilter model.BookingFilter
			called := false
			svc := &mockBookingService{
				listAllFunc: func(_ context.Context, _ model.Actor, _ model.BookingKind, filter model.BookingFilter, _ int, _ int64) ([]*model.Booking, int64, error) {
					gotFilter, called = filter, true
					return []*model.Booking{}, 0, nil
				},
			}
			srv := newServer(t, svc)

			resp, err := client.NewBookingClient(srv.URL, "admin-1", "admin").ListAll(context.Background(), "flight", tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.StatusCode, string(resp.Body))
			if tt.wantCode != http.StatusOK {
				assert.False(t, called, "invalid filters must not reach the service")
				return
			}
			assert.True(t, tt.wantFilter.From.Equal(gotFilter.From))
			assert.True(t, tt.wantFilter.To.Equal(gotFilter.To))
			gotFilter.From, gotFilter.To = tt.wantFilter.From, tt.wantFilter.To
			assert.Equal(t, tt.wantFilter, gotFilter)
		})
	}
}

func TestGetByIDAndDetails(t *testing.T) {
	svc := &mockBookingService{
		getByIDFunc: func(_ context.Context, actor model.Actor, kind model.BookingKind, id string) (*model.Booking, error) {
			if actor.UserID != "user-1" {
				return nil, apperrors.Forbidden("You do not have access to this booking").WithDetails(map[string]any{"kind": kind})
			}
			return &model.Booking{ID: id, Kind: kind}, nil
		},
		getDetailsFunc: func(_ context.Context, _ model.Actor, kind model.BookingKind, id string) (*model.Booking, error) {
			return &model.Booking{ID: id, Kind: kind, BookingReference: "FLT-ZZ9999"}, nil
		},
	}
	srv := newServer(t, svc)

	resp, err := client.NewBookingClient(srv.URL, "user-1", "user").GetByID(context.Background(), "flight", "b1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.NewBookingClient(srv.URL, "user-2", "user").GetByID(context.Background(), "flight", "b1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	var errBody apperrors.ErrorResponse
	require.NoError(t, resp.DecodeJSON(&errBody))
	assert.Equal(t, apperrors.CodeForbidden, errBody.Code)
	assert.Equal(t, "flight", errBody.Details["kind"])

	resp, err = client.NewBookingClient(srv.URL, "user-1", "user").GetDetails(context.Background(), "flight", "b1")
	require.NoError(t, err)
	var body envelope[model.Booking]
	require.NoError(t, resp.DecodeJSON(&body))
	assert.Equal(t, "FLT-ZZ9999", body.Data.BookingReference)
}

func TestStatusRoutes(t *testing.T) {
	var gotStatus, gotPayment, gotReason string
	svc := &mockBookingService{
		updateStatusFunc: func(_ context.Context, _ model.Actor, _ model.BookingKind, id, status string) (*model.Booking, error) {
			gotStatus = status
			if status == model.StatusPending {
				return nil, apperrors.TerminalState("Completed bookings cannot change status")
			}
			return &model.Booking{ID: id, Status: status}, nil
		},
		updatePaymentFunc: func(_ context.Context, _ model.Actor, _ model.BookingKind, id, status string) (*model.Booking, error) {
			gotPayment = status
			return &model.Booking{ID: id, PaymentStatus: status}, nil
		},
		cancelFunc: func(_ context.Context, _ model.Actor, _ model.BookingKind, id, reason string) (*model.Booking, error) {
			gotReason = reason
			return &model.Booking{ID: id, Status: model.StatusCancelled}, nil
		},
	}
	srv := newServer(t, svc)
	c := client.NewBookingClient(srv.URL, "admin-1", "admin")
	ctx := context.Background()

	resp, err := c.UpdateStatus(ctx, "tour", "b1", model.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusConfirmed, gotStatus)

	resp, err = c.UpdateStatus(ctx, "tour", "b1", model.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = c.UpdatePayment(ctx, "tour", "b1", model.PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.PaymentPaid, gotPayment)

	resp, err = c.Cancel(ctx, "tour", "b1", "weather")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "weather", gotReason)
}

func TestCancel_WithoutBody(t *testing.T) {
	var gotReason = "unset"
	svc := &mockBookingService{
		cancelFunc: func(_ context.Context, _ model.Actor, _ model.BookingKind, id, reason string) (*model.Booking, error) {
			gotReason = reason
			return &model.Booking{ID: id}, nil
		},
	}
	srv := newServer(t, svc)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/bookings/hotel/id/b1/cancel", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.UserIDHeader, "user-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "", gotReason)
}

func TestDelete(t *testing.T) {
	svc := &mockBookingService{
		deleteFunc: func(_ context.Context, actor model.Actor, kind model.BookingKind, id string) error {
			if !actor.IsAdmin() {
				return apperrors.Forbidden("Only administrators can delete bookings")
			}
			if id == "missing" {
				return apperrors.NotFoundWithID("Booking", id)
			}
			return nil
		},
	}
	srv := newServer(t, svc)
	ctx := context.Background()

	resp, err := client.NewBookingClient(srv.URL, "admin-1", "admin").Delete(ctx, "flight", "b1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = client.NewBookingClient(srv.URL, "admin-1", "admin").Delete(ctx, "flight", "missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = client.NewBookingClient(srv.URL, "user-1", "user").Delete(ctx, "flight", "b1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUnexpectedErrorIsInternal(t *testing.T) {
	svc := &mockBookingService{
		getByIDFunc: func(context.Context, model.Actor, model.BookingKind, string) (*model.Booking, error) {
			return nil, errors.New("mongo: connection reset")
		},
	}
	srv := newServer(t, svc)

	resp, err := client.NewBookingClient(srv.URL, "user-1", "user").GetByID(context.Background(), "tour", "b1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, string(resp.Body), "connection reset")
}

// ────────────────────────────────────────────────
// Health
// ────────────────────────────────────────────────

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context, *readpref.ReadPref) error { return p.err }

func TestReady(t *testing.T) {
	tests := []struct {
		name      string
		dbErr     error
		cacheErr  error
		wantCode  int
		wantCache string
	}{
		{"all healthy", nil, nil, http.StatusOK, "ok"},
		{"cache degraded", nil, errors.New("redis down"), http.StatusOK, "degraded"},
		{"database down", errors.New("no primary"), nil, http.StatusServiceUnavailable, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			cache := func(context.Context) error { return tt.cacheErr }
			NewHealthHandler(fakePinger{err: tt.dbErr}, cache, testLogger()).RegisterRoutes(router)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCache != "" {
				assert.Contains(t, rec.Body.String(), `"cache":"`+tt.wantCache+`"`)
			}
		})
	}
}
