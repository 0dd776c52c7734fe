package model

import (
	"time"
)

type BookingKind string

const (
	KindTour   BookingKind = "tour"
	KindHotel  BookingKind = "hotel"
	KindFlight BookingKind = "flight"
)

var BookingKinds = []BookingKind{KindTour, KindHotel, KindFlight}

func ParseBookingKind(s string) (BookingKind, bool) {
	switch BookingKind(s) {
	case KindTour, KindHotel, KindFlight:
		return BookingKind(s), true
	}
	return "", false
}

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
	PaymentFailed   = "failed"
)

const DefaultCurrency = "VND"

type ContactInfo struct {
	FullName string `json:"full_name,omitempty" bson:"full_name,omitempty" validate:"omitempty,max=100"`
	Email    string `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Phone    string `json:"phone,omitempty" bson:"phone,omitempty" validate:"omitempty,min=6,max=20"`
}

type Passenger struct {
	Type        string `json:"type,omitempty" bson:"type,omitempty" validate:"omitempty,oneof=adult child infant"`
	Title       string `json:"title,omitempty" bson:"title,omitempty" validate:"omitempty,oneof=Mr Mrs Ms Miss Mstr"`
	FirstName   string `json:"first_name" bson:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name,omitempty" bson:"last_name,omitempty" validate:"omitempty,max=100"`
	Nationality string `json:"nationality,omitempty" bson:"nationality,omitempty"`
	SeatClass   string `json:"seat_class,omitempty" bson:"seat_class,omitempty" validate:"omitempty,oneof=economy premium_economy business first"`

	// Accepted on input only; folded into the fields above before storing.
	FullName string `json:"full_name,omitempty" bson:"-"`
	Gender   string `json:"gender,omitempty" bson:"-"`
}

// Booking is the persisted reservation shared by all three kinds. Kind-specific
// fields are left empty for the other kinds. Tour, Hotel and Flight are populated
// from the subject collections at read time and never stored on the booking.
type Booking struct {
	ID       string      `json:"id,omitempty" bson:"_id,omitempty"`
	LegacyID string      `json:"-" bson:"id,omitempty"`
	Kind     BookingKind `json:"booking_type" bson:"booking_type,omitempty"`
	UserID   string      `json:"user_id" bson:"user_id"`

	TourID    string `json:"tour_id,omitempty" bson:"tour_id,omitempty"`
	TourName  string `json:"tour_name,omitempty" bson:"tour_name,omitempty"`
	TourImage string `json:"tour_image,omitempty" bson:"tour_image,omitempty"`
	StartDate string `json:"start_date,omitempty" bson:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty" bson:"end_date,omitempty"`
	Duration  int    `json:"duration,omitempty" bson:"duration,omitempty"`

	HotelID      string `json:"hotel_id,omitempty" bson:"hotel_id,omitempty"`
	HotelName    string `json:"hotel_name,omitempty" bson:"hotel_name,omitempty"`
	HotelImage   string `json:"hotel_image,omitempty" bson:"hotel_image,omitempty"`
	RoomID       string `json:"room_id,omitempty" bson:"room_id,omitempty"`
	RoomName     string `json:"room_name,omitempty" bson:"room_name,omitempty"`
	CheckInDate  string `json:"check_in_date,omitempty" bson:"check_in_date,omitempty"`
	CheckOutDate string `json:"check_out_date,omitempty" bson:"check_out_date,omitempty"`
	Nights       int    `json:"nights,omitempty" bson:"nights,omitempty"`

	FlightID      string      `json:"flight_id,omitempty" bson:"flight_id,omitempty"`
	FlightNumber  string      `json:"flight_number,omitempty" bson:"flight_number,omitempty"`
	FlightDate    string      `json:"flight_date,omitempty" bson:"flight_date,omitempty"`
	DepartureTime string      `json:"departure_time,omitempty" bson:"departure_time,omitempty"`
	DepartureCity string      `json:"departure_city,omitempty" bson:"departure_city,omitempty"`
	ArrivalCity   string      `json:"arrival_city,omitempty" bson:"arrival_city,omitempty"`
	Passengers    []Passenger `json:"passengers,omitempty" bson:"passengers,omitempty"`

	Guests   PartySize `json:"guests" bson:"guests"`
	Adults   int       `json:"adults,omitempty" bson:"adults,omitempty"`
	Children int       `json:"children,omitempty" bson:"children,omitempty"`

	TotalPrice float64 `json:"total_price" bson:"total_price"`
	Price      float64 `json:"price,omitempty" bson:"price,omitempty"`
	Currency   string  `json:"currency" bson:"currency"`

	Status             string `json:"status" bson:"status"`
	PaymentStatus      string `json:"payment_status" bson:"payment_status"`
	PaymentMethod      string `json:"payment_method,omitempty" bson:"payment_method,omitempty"`
	CancellationReason string `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`

	BookingReference string `json:"booking_reference,omitempty" bson:"booking_reference,omitempty"`
	BookingNumber    string `json:"booking_number,omitempty" bson:"booking_number,omitempty"`

	ContactInfo     ContactInfo `json:"contact_info" bson:"contact_info"`
	SpecialRequests string      `json:"special_requests,omitempty" bson:"special_requests,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`

	Tour   *Tour   `json:"tour,omitempty" bson:"-"`
	Hotel  *Hotel  `json:"hotel,omitempty" bson:"-"`
	Flight *Flight `json:"flight,omitempty" bson:"-"`
}

// Clone returns a copy that can be mutated without touching b. Populated
// subjects and the passenger slice are shared read-only.
func (b *Booking) Clone() *Booking {
	c := *b
	return &c
}

// BookingRequest is the body accepted when a user creates a booking of any kind.
type BookingRequest struct {
	TourID    string `json:"tour_id,omitempty" validate:"required_if=Kind tour,omitempty,mongodb"`
	StartDate string `json:"start_date,omitempty" validate:"required_if=Kind tour,omitempty,booking_date"`
	EndDate   string `json:"end_date,omitempty" validate:"omitempty,booking_date"`
	Adults    int    `json:"adults,omitempty" validate:"omitempty,min=0,max=100"`
	Children  int    `json:"children,omitempty" validate:"omitempty,min=0,max=100"`

	HotelID      string `json:"hotel_id,omitempty" validate:"required_if=Kind hotel,omitempty,mongodb"`
	RoomID       string `json:"room_id,omitempty" validate:"omitempty,max=64"`
	CheckInDate  string `json:"check_in_date,omitempty" validate:"required_if=Kind hotel,omitempty,booking_date"`
	CheckOutDate string `json:"check_out_date,omitempty" validate:"required_if=Kind hotel,omitempty,booking_date"`

	FlightID   string      `json:"flight_id,omitempty" validate:"required_if=Kind flight,omitempty,max=32"`
	FlightDate string      `json:"flight_date,omitempty" validate:"omitempty,booking_date"`
	Passengers []Passenger `json:"passengers,omitempty" validate:"omitempty,max=50,dive"`

	Guests          PartySize   `json:"guests"`
	TotalPrice      float64     `json:"total_price,omitempty" validate:"omitempty,min=0"`
	Price           float64     `json:"price,omitempty" validate:"omitempty,min=0"`
	Currency        string      `json:"currency,omitempty" validate:"omitempty,len=3"`
	PaymentMethod   string      `json:"payment_method,omitempty" validate:"omitempty,oneof=credit_card debit_card bank_transfer paypal momo zalopay cash sepay other"`
	ContactInfo     ContactInfo `json:"contact_info"`
	SpecialRequests string      `json:"special_requests,omitempty" validate:"omitempty,max=1000"`

	Kind BookingKind `json:"-"`
}

type StatusUpdate struct {
	Status string `json:"status"`
}

type PaymentUpdate struct {
	PaymentStatus string `json:"payment_status"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}
