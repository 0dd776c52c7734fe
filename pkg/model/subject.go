package model

import "time"

type Tour struct {
	ID          string   `json:"id,omitempty" bson:"_id,omitempty"`
	LegacyID    string   `json:"-" bson:"id,omitempty"`
	Name        string   `json:"name" bson:"name"`
	Destination string   `json:"destination,omitempty" bson:"destination,omitempty"`
	Images      []string `json:"images,omitempty" bson:"images,omitempty"`
	CoverImage  string   `json:"cover_image,omitempty" bson:"cover_image,omitempty"`
	Image       string   `json:"image,omitempty" bson:"image,omitempty"`
	Duration    int      `json:"duration,omitempty" bson:"duration,omitempty"`
	Price       float64  `json:"price,omitempty" bson:"price,omitempty"`
}

type Room struct {
	ID    string  `json:"id" bson:"id"`
	Name  string  `json:"name" bson:"name"`
	Price float64 `json:"price,omitempty" bson:"price,omitempty"`
}

type Hotel struct {
	ID         string   `json:"id,omitempty" bson:"_id,omitempty"`
	LegacyID   string   `json:"-" bson:"id,omitempty"`
	Name       string   `json:"name" bson:"name"`
	City       string   `json:"city,omitempty" bson:"city,omitempty"`
	Images     []string `json:"images,omitempty" bson:"images,omitempty"`
	CoverImage string   `json:"cover_image,omitempty" bson:"cover_image,omitempty"`
	Image      string   `json:"image,omitempty" bson:"image,omitempty"`
	Rooms      []Room   `json:"rooms,omitempty" bson:"rooms,omitempty"`
}

func (h *Hotel) Room(id string) (Room, bool) {
	for _, r := range h.Rooms {
		if r.ID == id {
			return r, true
		}
	}
	return Room{}, false
}

type SeatClass struct {
	Name           string  `json:"name" bson:"name"`
	Price          float64 `json:"price" bson:"price"`
	AvailableSeats int     `json:"available_seats" bson:"available_seats"`
}

type Flight struct {
	ID                string      `json:"id,omitempty" bson:"_id,omitempty"`
	LegacyID          string      `json:"-" bson:"id,omitempty"`
	FlightNumber      string      `json:"flight_number" bson:"flight_number"`
	Airline           string      `json:"airline" bson:"airline"`
	DepartureAirport  string      `json:"departure_airport" bson:"departure_airport"`
	DepartureCity     string      `json:"departure_city" bson:"departure_city"`
	DepartureTerminal string      `json:"departure_terminal,omitempty" bson:"departure_terminal,omitempty"`
	ArrivalAirport    string      `json:"arrival_airport" bson:"arrival_airport"`
	ArrivalCity       string      `json:"arrival_city" bson:"arrival_city"`
	ArrivalTerminal   string      `json:"arrival_terminal,omitempty" bson:"arrival_terminal,omitempty"`
	DepartureTime     time.Time   `json:"departure_time" bson:"departure_time"`
	ArrivalTime       time.Time   `json:"arrival_time" bson:"arrival_time"`
	Status            string      `json:"status" bson:"status"`
	Aircraft          string      `json:"aircraft,omitempty" bson:"aircraft,omitempty"`
	Price             float64     `json:"price" bson:"price"`
	SeatClasses       []SeatClass `json:"seat_classes,omitempty" bson:"seat_classes,omitempty"`
	DurationMinutes   int         `json:"duration_minutes,omitempty" bson:"duration_minutes,omitempty"`
	CheckedBaggageKg  int         `json:"checked_baggage_kg,omitempty" bson:"checked_baggage_kg,omitempty"`
	CabinBaggageKg    int         `json:"cabin_baggage_kg,omitempty" bson:"cabin_baggage_kg,omitempty"`
	Synthesized       bool        `json:"synthesized,omitempty" bson:"synthesized,omitempty"`
}
