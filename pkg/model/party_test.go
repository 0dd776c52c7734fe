package model

import (
	"encoding/json"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

type guestsDoc struct {
	Guests PartySize `json:"guests" bson:"guests"`
}

func TestPartySize_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantTotal int
		wantSet   bool
		wantSplit bool
	}{
		{name: "bare count", body: `{"guests": 3}`, wantTotal: 3, wantSet: true},
		{name: "fractional count truncates", body: `{"guests": 2.9}`, wantTotal: 2, wantSet: true},
		{name: "adults and children", body: `{"guests": {"adults": 2, "children": 1}}`, wantTotal: 3, wantSet: true, wantSplit: true},
		{name: "adults only", body: `{"guests": {"adults": 4}}`, wantTotal: 4, wantSet: true, wantSplit: true},
		{name: "empty object", body: `{"guests": {}}`, wantTotal: 0, wantSet: true},
		{name: "string", body: `{"guests": "two"}`, wantTotal: 0, wantSet: true},
		{name: "null", body: `{"guests": null}`, wantTotal: 0},
		{name: "missing", body: `{}`, wantTotal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc guestsDoc
			if err := json.Unmarshal([]byte(tt.body), &doc); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := doc.Guests.Total(); got != tt.wantTotal {
				t.Errorf("Total() = %d, want %d", got, tt.wantTotal)
			}
			if got := doc.Guests.IsSet(); got != tt.wantSet {
				t.Errorf("IsSet() = %v, want %v", got, tt.wantSet)
			}
			if _, _, split := doc.Guests.Split(); split != tt.wantSplit {
				t.Errorf("Split() ok = %v, want %v", split, tt.wantSplit)
			}
		})
	}
}

func TestPartySize_UnmarshalBSONLegacyShapes(t *testing.T) {
	tests := []struct {
		name      string
		doc       bson.M
		wantTotal int
	}{
		{name: "int32", doc: bson.M{"guests": int32(2)}, wantTotal: 2},
		{name: "int64", doc: bson.M{"guests": int64(5)}, wantTotal: 5},
		{name: "double", doc: bson.M{"guests": 3.0}, wantTotal: 3},
		{name: "split", doc: bson.M{"guests": bson.M{"adults": 2, "children": 2}}, wantTotal: 4},
		{name: "split with double counts", doc: bson.M{"guests": bson.M{"adults": 1.5, "children": int64(1)}}, wantTotal: 2},
		{name: "split with string count", doc: bson.M{"guests": bson.M{"adults": "2", "children": 1}}, wantTotal: 0},
		{name: "split with null child", doc: bson.M{"guests": bson.M{"adults": 3, "children": nil}}, wantTotal: 3},
		{name: "unrelated keys", doc: bson.M{"guests": bson.M{"infants": 1}}, wantTotal: 0},
		{name: "string", doc: bson.M{"guests": "many"}, wantTotal: 0},
		{name: "null", doc: bson.M{"guests": nil}, wantTotal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := bson.Marshal(tt.doc)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var doc guestsDoc
			if err := bson.Unmarshal(raw, &doc); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := doc.Guests.Total(); got != tt.wantTotal {
				t.Errorf("Total() = %d, want %d", got, tt.wantTotal)
			}
		})
	}
}

func TestBooking_MalformedGuestsStillDecodes(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"user_id":      "user-1",
		"booking_type": "hotel",
		"guests":       bson.M{"adults": "2", "children": 1},
		"total_price":  1200000.0,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var b Booking
	if err := bson.Unmarshal(raw, &b); err != nil {
		t.Fatalf("a bad guests value must not fail the whole document: %v", err)
	}
	if b.UserID != "user-1" || b.TotalPrice != 1200000 {
		t.Errorf("unexpected booking: %+v", b)
	}
	if !b.Guests.IsSet() || b.Guests.Total() != 0 {
		t.Errorf("Guests = %+v, want set with total 0", b.Guests)
	}
}

func TestPartySize_KeepsFormOnWrite(t *testing.T) {
	flat, err := json.Marshal(guestsDoc{Guests: FlatParty(2)})
	if err != nil {
		t.Fatal(err)
	}
	if string(flat) != `{"guests":2}` {
		t.Errorf("flat form = %s", flat)
	}

	split, err := json.Marshal(guestsDoc{Guests: SplitParty(1, 0)})
	if err != nil {
		t.Fatal(err)
	}
	if string(split) != `{"guests":{"adults":1,"children":0}}` {
		t.Errorf("split form = %s", split)
	}
}

func TestActor_CanAccess(t *testing.T) {
	booking := &Booking{UserID: "user-1"}

	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{name: "owner", actor: Actor{UserID: "user-1", Role: RoleUser}, want: true},
		{name: "other user", actor: Actor{UserID: "user-2", Role: RoleUser}, want: false},
		{name: "admin", actor: Actor{UserID: "admin-1", Role: RoleAdmin}, want: true},
		{name: "anonymous", actor: Actor{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.actor.CanAccess(booking); got != tt.want {
				t.Errorf("CanAccess() = %v, want %v", got, tt.want)
			}
		})
	}
	if (Actor{UserID: "user-1"}).Owns(nil) {
		t.Error("nobody owns a nil booking")
	}
}
