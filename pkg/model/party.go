package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type partyForm uint8

const (
	partyUnset partyForm = iota
	partyFlat
	partySplit
	partyOther
)

// PartySize holds the number of travellers on a booking. Clients send either a
// bare count or an {adults, children} object and both are stored as received.
type PartySize struct {
	form     partyForm
	count    int
	adults   int
	children int
}

type splitParty struct {
	Adults   *int `json:"adults,omitempty" bson:"adults,omitempty"`
	Children *int `json:"children,omitempty" bson:"children,omitempty"`
}

func FlatParty(n int) PartySize {
	return PartySize{form: partyFlat, count: n}
}

func SplitParty(adults, children int) PartySize {
	return PartySize{form: partySplit, adults: adults, children: children}
}

// Total sums adults and children for the object form, returns the count for the
// flat form and 0 for anything else.
func (p PartySize) Total() int {
	switch p.form {
	case partyFlat:
		return p.count
	case partySplit:
		return p.adults + p.children
	}
	return 0
}

func (p PartySize) IsSet() bool {
	return p.form != partyUnset
}

func (p PartySize) Split() (adults, children int, ok bool) {
	return p.adults, p.children, p.form == partySplit
}

func (p PartySize) MarshalJSON() ([]byte, error) {
	switch p.form {
	case partyFlat:
		return json.Marshal(p.count)
	case partySplit:
		return json.Marshal(splitParty{Adults: &p.adults, Children: &p.children})
	}
	return []byte("null"), nil
}

func (p *PartySize) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*p = PartySize{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '{':
		var s splitParty
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid guests object: %w", err)
		}
		p.setSplit(s)
	case '"', '[', 't', 'f':
		p.form = partyOther
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid guests count: %w", err)
		}
		*p = FlatParty(int(n))
	}
	return nil
}

func (p PartySize) MarshalBSONValue() (bsontype.Type, []byte, error) {
	switch p.form {
	case partyFlat:
		return bson.MarshalValue(int32(p.count))
	case partySplit:
		return bson.MarshalValue(splitParty{Adults: &p.adults, Children: &p.children})
	}
	return bson.TypeNull, nil, nil
}

func (p *PartySize) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	*p = PartySize{}
	raw := bson.RawValue{Type: t, Value: data}

	switch t {
	case bson.TypeNull, bson.TypeUndefined:
		return nil
	case bson.TypeInt32:
		*p = FlatParty(int(raw.Int32()))
	case bson.TypeInt64:
		*p = FlatParty(int(raw.Int64()))
	case bson.TypeDouble:
		*p = FlatParty(int(raw.Double()))
	case bson.TypeEmbeddedDocument:
		doc, ok := raw.DocumentOK()
		if !ok {
			p.form = partyOther
			return nil
		}
		p.setSplitDocument(doc)
	default:
		p.form = partyOther
	}
	return nil
}

func (p *PartySize) setSplit(s splitParty) {
	if s.Adults == nil && s.Children == nil {
		p.form = partyOther
		return
	}
	p.form = partySplit
	if s.Adults != nil {
		p.adults = *s.Adults
	}
	if s.Children != nil {
		p.children = *s.Children
	}
}

// setSplitDocument reads a stored {adults, children} document. Counts stored
// as doubles are truncated; any other type makes the whole value unusable.
func (p *PartySize) setSplitDocument(doc bson.Raw) {
	adults, hasAdults, okAdults := rawCount(doc, "adults")
	children, hasChildren, okChildren := rawCount(doc, "children")
	if !okAdults || !okChildren || (!hasAdults && !hasChildren) {
		p.form = partyOther
		return
	}
	p.form = partySplit
	p.adults = adults
	p.children = children
}

func rawCount(doc bson.Raw, key string) (n int, present bool, ok bool) {
	v, err := doc.LookupErr(key)
	if err != nil {
		return 0, false, true
	}
	switch v.Type {
	case bson.TypeInt32:
		return int(v.Int32()), true, true
	case bson.TypeInt64:
		return int(v.Int64()), true, true
	case bson.TypeDouble:
		return int(v.Double()), true, true
	case bson.TypeNull, bson.TypeUndefined:
		return 0, false, true
	}
	return 0, true, false
}
