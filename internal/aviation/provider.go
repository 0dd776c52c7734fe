// Package aviation looks up live flight data from an external provider and
// turns it into flight records the bookings service can store.
package aviation

import (
	"context"
	"errors"
	"strings"
	"time"

	"gotour/pkg/model"
)

var (
	ErrFlightNotFound = errors.New("flight not known to provider")
	ErrUnavailable    = errors.New("flight provider unavailable")
	ErrNotConfigured  = errors.New("flight provider not configured")
)

const (
	UnknownValue          = "Unknown"
	UnknownAirline        = "Unknown Airline"
	DefaultStatus         = "scheduled"
	DefaultEconomyPrice   = 2000000
	DefaultBusinessPrice  = 4000000
	DefaultEconomySeats   = 30
	DefaultBusinessSeats  = 10
	DefaultDurationHours  = 2
	DefaultCheckedBaggage = 20
	DefaultCabinBaggage   = 7
)

// Provider fetches details for a flight code on a date (YYYY-MM-DD, may be empty).
type Provider interface {
	FlightDetails(ctx context.Context, code, date string) (*FlightDetails, error)
}

type Endpoint struct {
	Airport   string `json:"airport,omitempty"`
	City      string `json:"city,omitempty"`
	IATA      string `json:"iata,omitempty"`
	Terminal  string `json:"terminal,omitempty"`
	Gate      string `json:"gate,omitempty"`
	Scheduled string `json:"scheduled,omitempty"`
}

type Airline struct {
	Name string `json:"name,omitempty"`
	IATA string `json:"iata,omitempty"`
}

type Aircraft struct {
	Model string `json:"model,omitempty"`
	IATA  string `json:"iata,omitempty"`
}

type Fares struct {
	Economy  float64 `json:"economy,omitempty"`
	Business float64 `json:"business,omitempty"`
}

type Seats struct {
	Economy  int `json:"economy,omitempty"`
	Business int `json:"business,omitempty"`
}

type Duration struct {
	Hours   int `json:"hours,omitempty"`
	Minutes int `json:"minutes,omitempty"`
}

type FlightDetails struct {
	FlightDate     string    `json:"flight_date,omitempty"`
	FlightStatus   string    `json:"flight_status,omitempty"`
	Departure      Endpoint  `json:"departure"`
	Arrival        Endpoint  `json:"arrival"`
	Airline        Airline   `json:"airline"`
	Aircraft       *Aircraft `json:"aircraft,omitempty"`
	Price          *Fares    `json:"price,omitempty"`
	SeatsAvailable *Seats    `json:"seats_available,omitempty"`
	Duration       *Duration `json:"duration,omitempty"`
}

// ToFlight builds a storable flight for code from provider details. Fields the
// provider left out get fixed defaults; schedule times default to now.
func ToFlight(code string, d *FlightDetails, now time.Time) *model.Flight {
	economy := float64(DefaultEconomyPrice)
	business := float64(DefaultBusinessPrice)
	if d.Price != nil {
		if d.Price.Economy > 0 {
			economy = d.Price.Economy
		}
		if d.Price.Business > 0 {
			business = d.Price.Business
		}
	}

	economySeats, businessSeats := DefaultEconomySeats, DefaultBusinessSeats
	if d.SeatsAvailable != nil {
		if d.SeatsAvailable.Economy > 0 {
			economySeats = d.SeatsAvailable.Economy
		}
		if d.SeatsAvailable.Business > 0 {
			businessSeats = d.SeatsAvailable.Business
		}
	}

	hours, minutes := DefaultDurationHours, 0
	if d.Duration != nil {
		if d.Duration.Hours > 0 {
			hours = d.Duration.Hours
		}
		minutes = d.Duration.Minutes
	}

	aircraft := UnknownValue
	if d.Aircraft != nil && d.Aircraft.Model != "" {
		aircraft = d.Aircraft.Model
	}

	return &model.Flight{
		FlightNumber:      strings.ToUpper(strings.TrimSpace(code)),
		Airline:           orDefault(d.Airline.Name, UnknownAirline),
		DepartureAirport:  orDefault(d.Departure.IATA, UnknownValue),
		DepartureCity:     orDefault(d.Departure.City, UnknownValue),
		DepartureTerminal: orDefault(d.Departure.Terminal, UnknownValue),
		ArrivalAirport:    orDefault(d.Arrival.IATA, UnknownValue),
		ArrivalCity:       orDefault(d.Arrival.City, UnknownValue),
		ArrivalTerminal:   orDefault(d.Arrival.Terminal, UnknownValue),
		DepartureTime:     scheduled(d.Departure.Scheduled, now),
		ArrivalTime:       scheduled(d.Arrival.Scheduled, now),
		Status:            orDefault(d.FlightStatus, DefaultStatus),
		Aircraft:          aircraft,
		Price:             economy,
		SeatClasses: []model.SeatClass{
			{Name: "economy", Price: economy, AvailableSeats: economySeats},
			{Name: "business", Price: business, AvailableSeats: businessSeats},
		},
		DurationMinutes:  hours*60 + minutes,
		CheckedBaggageKg: DefaultCheckedBaggage,
		CabinBaggageKg:   DefaultCabinBaggage,
		Synthesized:      true,
	}
}

func scheduled(s string, fallback time.Time) time.Time {
	if t, ok := model.ParseDate(s); ok {
		return t.UTC()
	}
	return fallback.UTC()
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
