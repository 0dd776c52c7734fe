package locale

import "time"

type Locale string

const (
	Vietnamese Locale = "vi"
	English    Locale = "en"

	Default = Vietnamese
)

type Messages struct {
	UnknownTour    string
	UnknownHotel   string
	UnknownPlace   string
	StandardRoom   string
	NotAvailable   string
	DateLayout     string
	DateTimeLayout string
}

var catalog = map[Locale]Messages{
	Vietnamese: {
		UnknownTour:    "Tour không xác định",
		UnknownHotel:   "Khách sạn không xác định",
		UnknownPlace:   "Địa điểm không xác định",
		StandardRoom:   "Phòng tiêu chuẩn",
		NotAvailable:   "N/A",
		DateLayout:     "02/01/2006",
		DateTimeLayout: "15:04 - 02/01/2006",
	},
	English: {
		UnknownTour:    "Unknown tour",
		UnknownHotel:   "Unknown hotel",
		UnknownPlace:   "Unknown destination",
		StandardRoom:   "Standard room",
		NotAvailable:   "N/A",
		DateLayout:     "Jan 2, 2006",
		DateTimeLayout: "15:04 - Jan 2, 2006",
	},
}

func Parse(s string) (Locale, bool) {
	l := Locale(s)
	_, ok := catalog[l]
	return l, ok
}

// Messages returns the catalog for l, falling back to the default locale.
func (l Locale) Messages() Messages {
	if m, ok := catalog[l]; ok {
		return m
	}
	return catalog[Default]
}

// FormatDate renders t with the locale's date layout, or NotAvailable when t is zero.
func (l Locale) FormatDate(t time.Time) string {
	m := l.Messages()
	if t.IsZero() {
		return m.NotAvailable
	}
	return t.Format(m.DateLayout)
}

func (l Locale) FormatDateTime(t time.Time) string {
	m := l.Messages()
	if t.IsZero() {
		return m.NotAvailable
	}
	return t.Format(m.DateTimeLayout)
}
