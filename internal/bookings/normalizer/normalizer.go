// Package normalizer reconciles booking documents into model.BookingView.
//
// Documents written by older clients use alias fields (id instead of _id, price
// instead of total_price, denormalized names and images) and the populated
// subject may be missing or partial. All fallback rules live here so handlers
// and the aggregator never repeat them. Nothing in this package writes to the
// store.
package normalizer

import (
	"math"
	"time"

	"gotour/pkg/locale"
	"gotour/pkg/model"
)

const (
	PlaceholderTourImage  = "https://images.unsplash.com/photo-1469474968028-56623f02e42e?q=80&w=2074&auto=format&fit=crop"
	PlaceholderHotelImage = "https://images.unsplash.com/photo-1566073771259-6a8506099945?q=80&w=2070&auto=format&fit=crop"
)

const day = 24 * time.Hour

// Normalize builds the canonical view of b using loc for placeholders and dates.
func Normalize(b *model.Booking, loc locale.Locale) model.BookingView {
	msgs := loc.Messages()
	kind := ResolveKind(b)

	view := model.BookingView{
		ID:            ResolveID(b),
		Kind:          kind,
		UserID:        b.UserID,
		SubjectID:     ResolveSubjectID(b, kind),
		DisplayName:   ResolveName(b, kind, msgs),
		Image:         ResolveImage(b, kind),
		DurationDays:  ResolveDuration(b, kind),
		GuestCount:    ResolveGuests(b, kind),
		TotalPrice:    ResolvePrice(b),
		Currency:      b.Currency,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		Reference:     b.BookingReference,
		Number:        b.BookingNumber,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
	if view.Currency == "" {
		view.Currency = model.DefaultCurrency
	}
	if view.Status == "" {
		view.Status = model.StatusPending
	}
	if view.PaymentStatus == "" {
		view.PaymentStatus = model.PaymentPending
	}

	start, end := resolveDates(b, kind)
	switch kind {
	case model.KindFlight:
		view.StartDate = loc.FormatDateTime(start)
		view.Location = view.DisplayName
	case model.KindHotel:
		view.StartDate = loc.FormatDate(start)
		view.EndDate = loc.FormatDate(end)
		view.RoomName = resolveRoomName(b, msgs)
		view.Location = firstNonEmpty(hotelCity(b), msgs.UnknownPlace)
	default:
		view.StartDate = loc.FormatDate(start)
		view.EndDate = loc.FormatDate(end)
		view.Location = firstNonEmpty(tourDestination(b), msgs.UnknownPlace)
	}

	return view
}

// ResolveKind prefers the persisted discriminant. Records written before it
// existed are classified by which reference they carry: tour, then flight,
// with hotel as the fallback.
func ResolveKind(b *model.Booking) model.BookingKind {
	if kind, ok := model.ParseBookingKind(string(b.Kind)); ok {
		return kind
	}
	switch {
	case b.Tour != nil || b.TourID != "":
		return model.KindTour
	case b.Flight != nil || b.FlightID != "" || b.FlightNumber != "":
		return model.KindFlight
	default:
		return model.KindHotel
	}
}

func ResolveID(b *model.Booking) string {
	return firstNonEmpty(b.ID, b.LegacyID)
}

func ResolveSubjectID(b *model.Booking, kind model.BookingKind) string {
	switch kind {
	case model.KindTour:
		if b.Tour != nil {
			if id := firstNonEmpty(b.Tour.ID, b.Tour.LegacyID); id != "" {
				return id
			}
		}
		return b.TourID
	case model.KindFlight:
		if b.Flight != nil {
			if id := firstNonEmpty(b.Flight.ID, b.Flight.LegacyID); id != "" {
				return id
			}
		}
		return b.FlightID
	default:
		if b.Hotel != nil {
			if id := firstNonEmpty(b.Hotel.ID, b.Hotel.LegacyID); id != "" {
				return id
			}
		}
		return b.HotelID
	}
}

func ResolvePrice(b *model.Booking) float64 {
	if b.TotalPrice > 0 {
		return b.TotalPrice
	}
	return b.Price
}

func ResolveName(b *model.Booking, kind model.BookingKind, msgs locale.Messages) string {
	switch kind {
	case model.KindTour:
		var name string
		if b.Tour != nil {
			name = b.Tour.Name
		}
		return firstNonEmpty(name, b.TourName, msgs.UnknownTour)
	case model.KindFlight:
		return flightTitle(b, msgs)
	default:
		var name string
		if b.Hotel != nil {
			name = b.Hotel.Name
		}
		return firstNonEmpty(name, b.HotelName, msgs.UnknownHotel)
	}
}

// ResolveImage walks the subject's gallery, its cover image, the image copied
// onto the booking, the subject's legacy single image and finally a fixed
// placeholder. Flights have no image.
func ResolveImage(b *model.Booking, kind model.BookingKind) string {
	switch kind {
	case model.KindTour:
		var images []string
		var cover, legacy string
		if b.Tour != nil {
			images, cover, legacy = b.Tour.Images, b.Tour.CoverImage, b.Tour.Image
		}
		return pickImage(images, cover, b.TourImage, legacy, PlaceholderTourImage)
	case model.KindHotel:
		var images []string
		var cover, legacy string
		if b.Hotel != nil {
			images, cover, legacy = b.Hotel.Images, b.Hotel.CoverImage, b.Hotel.Image
		}
		return pickImage(images, cover, b.HotelImage, legacy, PlaceholderHotelImage)
	}
	return ""
}

// ResolveDuration returns tour days or hotel nights. An explicit value on the
// booking wins, then the span between the two dates rounded up to whole days,
// then the tour's own duration.
func ResolveDuration(b *model.Booking, kind model.BookingKind) int {
	switch kind {
	case model.KindTour:
		if b.Duration > 0 {
			return b.Duration
		}
		if days, ok := daysBetween(b.StartDate, b.EndDate); ok {
			return days
		}
		if b.Tour != nil && b.Tour.Duration > 0 {
			return b.Tour.Duration
		}
	case model.KindHotel:
		if b.Nights > 0 {
			return b.Nights
		}
		if nights, ok := daysBetween(b.CheckInDate, b.CheckOutDate); ok {
			return nights
		}
	}
	return 0
}

// ResolveGuests counts the party. Flights count named passengers first; tours
// written without a guests field carry adults and children at the top level.
func ResolveGuests(b *model.Booking, kind model.BookingKind) int {
	if kind == model.KindFlight && len(b.Passengers) > 0 {
		return len(b.Passengers)
	}
	if b.Guests.IsSet() {
		return b.Guests.Total()
	}
	if kind == model.KindTour {
		return b.Adults + b.Children
	}
	return 0
}

func daysBetween(from, to string) (int, bool) {
	start, ok := model.ParseDate(from)
	if !ok {
		return 0, false
	}
	end, ok := model.ParseDate(to)
	if !ok || end.Before(start) {
		return 0, false
	}
	return int(math.Ceil(float64(end.Sub(start)) / float64(day))), true
}

func resolveDates(b *model.Booking, kind model.BookingKind) (time.Time, time.Time) {
	switch kind {
	case model.KindFlight:
		if b.Flight != nil && !b.Flight.DepartureTime.IsZero() {
			return b.Flight.DepartureTime, time.Time{}
		}
		if t, ok := model.ParseDate(b.DepartureTime); ok {
			return t, time.Time{}
		}
		t, _ := model.ParseDate(b.FlightDate)
		return t, time.Time{}
	case model.KindHotel:
		start, _ := model.ParseDate(b.CheckInDate)
		end, _ := model.ParseDate(b.CheckOutDate)
		return start, end
	default:
		start, _ := model.ParseDate(b.StartDate)
		end, _ := model.ParseDate(b.EndDate)
		return start, end
	}
}

func flightTitle(b *model.Booking, msgs locale.Messages) string {
	var from, to, number string
	if b.Flight != nil {
		from, to, number = b.Flight.DepartureCity, b.Flight.ArrivalCity, b.Flight.FlightNumber
	}
	from = firstNonEmpty(from, b.DepartureCity, msgs.NotAvailable)
	to = firstNonEmpty(to, b.ArrivalCity, msgs.NotAvailable)
	number = firstNonEmpty(number, b.FlightNumber)

	title := from + " - " + to
	if number != "" {
		title += " (" + number + ")"
	}
	return title
}

func resolveRoomName(b *model.Booking, msgs locale.Messages) string {
	if b.Hotel != nil && b.RoomID != "" {
		if room, ok := b.Hotel.Room(b.RoomID); ok && room.Name != "" {
			return room.Name
		}
	}
	return firstNonEmpty(b.RoomName, msgs.StandardRoom)
}

func tourDestination(b *model.Booking) string {
	if b.Tour != nil {
		return b.Tour.Destination
	}
	return ""
}

func hotelCity(b *model.Booking) string {
	if b.Hotel != nil {
		return b.Hotel.City
	}
	return ""
}

func pickImage(images []string, candidates ...string) string {
	for _, img := range images {
		if img != "" {
			return img
		}
	}
	return firstNonEmpty(candidates...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
