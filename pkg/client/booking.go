package client

import (
	"context"
	"net/url"
)

const bookingsBasePath = "/api/v1/bookings"

// BookingClient calls the bookings API on behalf of one gateway identity.
type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseURL, userID, role string) *BookingClient {
	c := NewHttpClient(baseURL, 0)
	c.Headers["X-User-ID"] = userID
	c.Headers["X-User-Role"] = role
	return &BookingClient{httpClient: c}
}

// WithHeader sets a header sent on every request, e.g. a gateway signature.
func (c *BookingClient) WithHeader(key, value string) *BookingClient {
	c.httpClient.Headers[key] = value
	return c
}

func (c *BookingClient) Create(ctx context.Context, kind string, body any) (*Response, error) {
	return c.httpClient.POST(ctx, bookingsBasePath+"/"+url.PathEscape(kind), body)
}

func (c *BookingClient) ListMine(ctx context.Context, filter string) (*Response, error) {
	q := url.Values{}
	if filter != "" {
		q.Set("type", filter)
	}
	return c.ListMineQuery(ctx, q)
}

// ListMineQuery lists the caller's bookings with any of the type, status,
// limit and offset parameters.
func (c *BookingClient) ListMineQuery(ctx context.Context, q url.Values) (*Response, error) {
	return c.httpClient.GET(ctx, withQuery(bookingsBasePath+"/me", q))
}

// ListAll lists one kind for an administrator. q may carry status,
// payment_status, user_id, from, to, limit and offset.
func (c *BookingClient) ListAll(ctx context.Context, kind string, q url.Values) (*Response, error) {
	return c.httpClient.GET(ctx, withQuery(bookingsBasePath+"/"+url.PathEscape(kind), q))
}

func (c *BookingClient) GetByID(ctx context.Context, kind, id string) (*Response, error) {
	return c.httpClient.GET(ctx, bookingPath(kind, id))
}

func (c *BookingClient) GetDetails(ctx context.Context, kind, id string) (*Response, error) {
	return c.httpClient.GET(ctx, bookingPath(kind, id)+"/details")
}

func (c *BookingClient) UpdateStatus(ctx context.Context, kind, id, status string) (*Response, error) {
	return c.httpClient.PATCH(ctx, bookingPath(kind, id)+"/status", map[string]string{"status": status})
}

func (c *BookingClient) UpdatePayment(ctx context.Context, kind, id, paymentStatus string) (*Response, error) {
	return c.httpClient.PATCH(ctx, bookingPath(kind, id)+"/payment", map[string]string{"payment_status": paymentStatus})
}

func (c *BookingClient) Cancel(ctx context.Context, kind, id, reason string) (*Response, error) {
	return c.httpClient.POST(ctx, bookingPath(kind, id)+"/cancel", map[string]string{"reason": reason})
}

func (c *BookingClient) Delete(ctx context.Context, kind, id string) (*Response, error) {
	return c.httpClient.DELETE(ctx, bookingPath(kind, id))
}

func bookingPath(kind, id string) string {
	return bookingsBasePath + "/" + url.PathEscape(kind) + "/id/" + url.PathEscape(id)
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
