package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gotour/internal/aviation"
	bookingserrors "gotour/internal/bookings/errors"
	"gotour/internal/bookings/normalizer"
	"gotour/pkg/model"
	"gotour/pkg/sanitizer"
)

const (
	UnnamedPassenger   = "Unnamed"
	DefaultNationality = "Vietnamese"
	DefaultSeatClass   = "economy"
)

// sanitize normalizes free-form request fields in place.
func sanitize(req *model.BookingRequest) {
	req.TourID = sanitizer.TrimAndNormalize(req.TourID)
	req.HotelID = sanitizer.TrimAndNormalize(req.HotelID)
	req.RoomID = sanitizer.TrimAndNormalize(req.RoomID)
	req.FlightID = sanitizer.TrimAndNormalize(req.FlightID)
	if req.FlightID != "" && !isObjectID(req.FlightID) {
		req.FlightID = sanitizer.NormalizeCode(req.FlightID)
	}
	req.Currency = sanitizer.NormalizeCode(req.Currency)
	req.SpecialRequests = sanitizer.TrimAndNormalize(req.SpecialRequests)

	req.ContactInfo.FullName = sanitizer.NormalizeName(req.ContactInfo.FullName)
	req.ContactInfo.Email = sanitizer.NormalizeEmail(req.ContactInfo.Email)
	req.ContactInfo.Phone = sanitizer.NormalizePhone(req.ContactInfo.Phone)

	req.Passengers = normalizePassengers(req.Passengers)
}

// normalizePassengers splits full names, and defaults the title from gender
// and the nationality.
func normalizePassengers(passengers []model.Passenger) []model.Passenger {
	if len(passengers) == 0 {
		return passengers
	}
	out := make([]model.Passenger, len(passengers))
	for i, p := range passengers {
		p.FullName = sanitizer.NormalizeName(p.FullName)
		p.FirstName = sanitizer.NormalizeName(p.FirstName)
		p.LastName = sanitizer.NormalizeName(p.LastName)

		if p.FullName != "" && (p.FirstName == "" || p.LastName == "") {
			p.FirstName, p.LastName = sanitizer.SplitFullName(p.FullName)
		}
		if p.FirstName == "" {
			p.FirstName = UnnamedPassenger
		}
		if p.Title == "" {
			p.Title = "Mr"
			if lowerEqual(p.Gender, "female") {
				p.Title = "Ms"
			}
		}
		if p.Nationality == "" {
			p.Nationality = DefaultNationality
		}
		out[i] = p
	}
	return out
}

func newBooking(actor model.Actor, kind model.BookingKind, req *model.BookingRequest) *model.Booking {
	b := &model.Booking{
		Kind:            kind,
		UserID:          actor.UserID,
		Guests:          req.Guests,
		Adults:          req.Adults,
		Children:        req.Children,
		TotalPrice:      req.TotalPrice,
		Price:           req.Price,
		Currency:        req.Currency,
		PaymentMethod:   req.PaymentMethod,
		ContactInfo:     req.ContactInfo,
		SpecialRequests: req.SpecialRequests,
	}
	if !b.Guests.IsSet() && (req.Adults > 0 || req.Children > 0) {
		b.Guests = model.SplitParty(req.Adults, req.Children)
	}

	switch kind {
	case model.KindTour:
		b.TourID = req.TourID
		b.StartDate = req.StartDate
		b.EndDate = req.EndDate
	case model.KindHotel:
		b.HotelID = req.HotelID
		b.RoomID = req.RoomID
		b.CheckInDate = req.CheckInDate
		b.CheckOutDate = req.CheckOutDate
	case model.KindFlight:
		b.FlightDate = req.FlightDate
		b.Passengers = req.Passengers
		if !b.Guests.IsSet() && len(req.Passengers) > 0 {
			b.Guests = model.FlatParty(len(req.Passengers))
		}
	}
	return b
}

func applyDefaults(b *model.Booking) {
	b.Status = model.StatusPending
	b.PaymentStatus = model.PaymentPending
	if b.Currency == "" {
		b.Currency = model.DefaultCurrency
	}
	if b.TotalPrice <= 0 {
		b.TotalPrice = b.Price
	}
}

func partyOf(b *model.Booking) int {
	return max(normalizer.ResolveGuests(b, b.Kind), 1)
}

func (s *bookingService) attachTour(ctx context.Context, b *model.Booking) error {
	tour, err := s.subjects.FindTour(ctx, b.TourID)
	if err != nil {
		return s.subjectError(err, "Tour", b.TourID, b.Kind)
	}

	b.Tour = tour
	b.TourName = tour.Name
	b.TourImage = normalizer.ResolveImage(b, model.KindTour)
	b.Duration = normalizer.ResolveDuration(b, model.KindTour)
	if b.TotalPrice <= 0 && b.Price <= 0 && tour.Price > 0 {
		b.TotalPrice = tour.Price * float64(partyOf(b))
	}
	return nil
}

func (s *bookingService) attachHotel(ctx context.Context, b *model.Booking) error {
	hotel, err := s.subjects.FindHotel(ctx, b.HotelID)
	if err != nil {
		return s.subjectError(err, "Hotel", b.HotelID, b.Kind)
	}

	b.Hotel = hotel
	b.HotelName = hotel.Name
	b.HotelImage = normalizer.ResolveImage(b, model.KindHotel)
	b.Nights = normalizer.ResolveDuration(b, model.KindHotel)

	if b.RoomID != "" {
		room, ok := hotel.Room(b.RoomID)
		if !ok {
			return subjectNotFound("Room", b.RoomID, b.Kind)
		}
		b.RoomName = room.Name
		if b.TotalPrice <= 0 && b.Price <= 0 && room.Price > 0 {
			b.TotalPrice = room.Price * float64(max(b.Nights, 1))
		}
	}
	return nil
}

// attachFlight resolves the flight by stored id or by flight number. A number
// unknown to the store is looked up with the flight provider and returned as
// a flight to be created alongside the booking.
func (s *bookingService) attachFlight(ctx context.Context, b *model.Booking, ref string) (*model.Flight, error) {
	var (
		flight      *model.Flight
		synthesized *model.Flight
		err         error
	)

	if isObjectID(ref) {
		flight, err = s.subjects.FindFlight(ctx, ref)
		if err != nil {
			return nil, s.subjectError(err, "Flight", ref, b.Kind)
		}
	} else {
		flight, err = s.subjects.FindFlightByNumber(ctx, ref)
		if err != nil && !errors.Is(err, bookingserrors.ErrSubjectNotFound) {
			return nil, s.subjectError(err, "Flight", ref, b.Kind)
		}
		if flight == nil {
			details, lookupErr := s.flights.FlightDetails(ctx, ref, flightDate(b.FlightDate))
			if lookupErr != nil {
				s.cfg.Log.Warn("Flight lookup failed, cannot create booking",
					"flight_id", ref,
					"flight_date", b.FlightDate,
					"upstream_unavailable", !errors.Is(lookupErr, aviation.ErrFlightNotFound),
					"error", lookupErr,
				)
				return nil, subjectNotFound("Flight", ref, b.Kind)
			}
			flight = aviation.ToFlight(ref, details, s.now())
			synthesized = flight
			s.cfg.Log.Info("Synthesizing flight from provider data", "flight_number", flight.FlightNumber)
		}
	}

	b.Flight = flight
	b.FlightID = flight.ID
	b.FlightNumber = flight.FlightNumber
	b.DepartureCity = flight.DepartureCity
	b.ArrivalCity = flight.ArrivalCity
	if !flight.DepartureTime.IsZero() {
		b.DepartureTime = flight.DepartureTime.UTC().Format(time.RFC3339)
	}
	if b.TotalPrice <= 0 && b.Price <= 0 {
		b.TotalPrice = fare(flight, b.Passengers)
	}
	return synthesized, nil
}

// fare sums the seat class price of every passenger, falling back to the
// flight's base price for unknown classes.
func fare(f *model.Flight, passengers []model.Passenger) float64 {
	if len(passengers) == 0 {
		return f.Price
	}
	var total float64
	for _, p := range passengers {
		class := p.SeatClass
		if class == "" {
			class = DefaultSeatClass
		}
		price := f.Price
		for _, sc := range f.SeatClasses {
			if sc.Name == class && sc.Price > 0 {
				price = sc.Price
				break
			}
		}
		total += price
	}
	return total
}

func flightDate(s string) string {
	if t, ok := model.ParseDate(s); ok {
		return t.Format("2006-01-02")
	}
	return ""
}

func (s *bookingService) subjectError(err error, resource, id string, kind model.BookingKind) error {
	if errors.Is(err, bookingserrors.ErrSubjectNotFound) {
		return subjectNotFound(resource, id, kind)
	}
	s.cfg.Log.Error("Failed to resolve booking subject", "resource", resource, "id", id, "error", err)
	return s.mapError(fmt.Errorf("%w: %v", bookingserrors.ErrUpstreamUnavailable, err), kind, id, "")
}

func (s *bookingService) populate(ctx context.Context, b *model.Booking) {
	s.populateAs(ctx, b, b.Kind)
}

// populateAs attaches the referenced tour, hotel or flight. Subjects that no
// longer exist are left empty; the booking's own denormalized fields remain.
func (s *bookingService) populateAs(ctx context.Context, b *model.Booking, kind model.BookingKind) {
	var err error
	switch kind {
	case model.KindTour:
		if b.Tour == nil && b.TourID != "" {
			b.Tour, err = s.subjects.FindTour(ctx, b.TourID)
		}
	case model.KindHotel:
		if b.Hotel == nil && b.HotelID != "" {
			b.Hotel, err = s.subjects.FindHotel(ctx, b.HotelID)
		}
	case model.KindFlight:
		if b.Flight == nil && b.FlightID != "" {
			b.Flight, err = s.subjects.FindFlight(ctx, b.FlightID)
		}
	}
	if err != nil && !errors.Is(err, bookingserrors.ErrSubjectNotFound) {
		s.cfg.Log.Warn("Failed to populate booking subject", "id", b.ID, "kind", kind, "error", err)
	}
}
