package locale

import (
	"testing"
	"time"
)

func TestFromAcceptLanguage(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   Locale
	}{
		{name: "vietnamese", header: "vi-VN,vi;q=0.9", want: Vietnamese},
		{name: "english first", header: "en-US,en;q=0.9,vi;q=0.8", want: English},
		{name: "unsupported then english", header: "fr-FR, en;q=0.5", want: English},
		{name: "uppercase tag", header: "EN", want: English},
		{name: "unsupported only", header: "de-DE", want: Vietnamese},
		{name: "empty", header: "", want: Vietnamese},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromAcceptLanguage(tt.header, Default)
			if got != tt.want {
				t.Errorf("FromAcceptLanguage(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

	if got := Vietnamese.FormatDate(d); got != "01/06/2024" {
		t.Errorf("Vietnamese.FormatDate() = %q", got)
	}
	if got := English.FormatDate(d); got != "Jun 1, 2024" {
		t.Errorf("English.FormatDate() = %q", got)
	}
	if got := English.FormatDate(time.Time{}); got != "N/A" {
		t.Errorf("FormatDate(zero) = %q, want N/A", got)
	}
	if got := Locale("xx").Messages().UnknownTour; got != catalog[Default].UnknownTour {
		t.Errorf("unknown locale should fall back to default, got %q", got)
	}
}
