package model

import (
	"strings"
	"time"
)

// BookingView is the canonical read shape of a booking of any kind, after
// aliases and partially populated subjects have been reconciled.
type BookingView struct {
	ID            string      `json:"id"`
	Kind          BookingKind `json:"booking_type"`
	UserID        string      `json:"user_id"`
	SubjectID     string      `json:"subject_id,omitempty"`
	DisplayName   string      `json:"display_name"`
	Location      string      `json:"location,omitempty"`
	RoomName      string      `json:"room_name,omitempty"`
	Image         string      `json:"image,omitempty"`
	StartDate     string      `json:"start_date"`
	EndDate       string      `json:"end_date,omitempty"`
	DurationDays  int         `json:"duration_days"`
	GuestCount    int         `json:"guest_count"`
	TotalPrice    float64     `json:"total_price"`
	Currency      string      `json:"currency"`
	Status        string      `json:"status"`
	PaymentStatus string      `json:"payment_status"`
	Reference     string      `json:"booking_reference,omitempty"`
	Number        string      `json:"booking_number,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseDate accepts the date shapes clients have historically sent. ok is false
// for empty or unparseable input.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
