package handlers

import (
	"testing"

	"sales-dashboard/internal/models"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{12.5, "12.50"},
		{999.999, "1,000.00"},
		{1234567.891, "1,234,567.89"},
		{-95.5, "-95.50"},
		{-1500, "-1,500.00"},
		{-0.001, "0.00"},
		{0.125, "0.13"},
		{1000, "1,000.00"},
		{-1234567.5, "-1,234,567.50"},
	}
	for _, tt := range tests {
		if got := formatAmount(tt.in); got != tt.want {
			t.Errorf("formatAmount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{4, "4"},
		{1200, "1,200"},
		{1000000, "1,000,000"},
		{-4500, "-4,500"},
	}
	for _, tt := range tests {
		if got := formatCount(tt.in); got != tt.want {
			t.Errorf("formatCount(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatMargin(t *testing.T) {
	if got := formatMargin(models.Value(16.67)); got != "16.67%" {
		t.Errorf("formatMargin(16.67) = %q", got)
	}
	if got := formatMargin(models.Value(-10)); got != "-10.00%" {
		t.Errorf("formatMargin(-10) = %q", got)
	}
	if got := formatMargin(models.Value(1250.5)); got != "1,250.50%" {
		t.Errorf("formatMargin(1250.5) = %q", got)
	}
	if got := formatMargin(models.Missing()); got != "n/a" {
		t.Errorf("formatMargin(missing) = %q", got)
	}
}
