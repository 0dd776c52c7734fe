package model

import "time"

// BookingFilter narrows administrative listings. Zero fields match everything.
// From and To bound CreatedAt inclusively.
type BookingFilter struct {
	Status        string
	PaymentStatus string
	UserID        string
	From          time.Time
	To            time.Time
}

// MyBookingsQuery selects from a user's merged bookings. Type is one of all,
// tour, hotel or flight. A zero Limit returns every match.
type MyBookingsQuery struct {
	Type   string
	Status string
	Limit  int
	Offset int64
}
