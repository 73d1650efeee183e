package utils

import "testing"

func TestNormalizeDigits(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"250", "250"},
		{" ۲۵۰ ", "250"},
		{"٣٠", "30"},
		{"level ۵", "level 5"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeDigits(tt.input); got != tt.want {
			t.Errorf("NormalizeDigits(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Week Warrior", "week-warrior"},
		{"  Point   Collector!! ", "point-collector"},
		{"1-on-1 PT Session", "1-on-1-pt-session"},
		{"Café Voucher", "café-voucher"},
		{"---", ""},
	}

	for _, tt := range tests {
		if got := Slugify(tt.input); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
