package util

import "testing"

func TestFormatPrice(t *testing.T) {
	testCases := []struct {
		amount int64
		want   string
	}{
		{amount: 0, want: "€0.00"},
		{amount: 5, want: "€0.05"},
		{amount: 4667, want: "€46.67"},
		{amount: 1000000, want: "€10000.00"},
	}

	for _, tc := range testCases {
		if got := FormatPrice(tc.amount); got != tc.want {
			t.Fatalf("FormatPrice(%d) = %s, want %s", tc.amount, got, tc.want)
		}
	}
}

func TestFormatQuantity(t *testing.T) {
	testCases := []struct {
		quantity int
		want     string
	}{
		{quantity: 1, want: "1 unit"},
		{quantity: 0, want: "0 units"},
		{quantity: 2, want: "2 units"},
		{quantity: 12500, want: "12,500 units"},
	}

	for _, tc := range testCases {
		if got := FormatQuantity(tc.quantity); got != tc.want {
			t.Fatalf("FormatQuantity(%d) = %s, want %s", tc.quantity, got, tc.want)
		}
	}
}

func TestTruncateContent(t *testing.T) {
	if got := TruncateContent("short", 10); got != "short" {
		t.Fatalf("TruncateContent(short, 10) = %s, want short", got)
	}
	if got := TruncateContent("a very long lot name", 6); got != "a very..." {
		t.Fatalf("TruncateContent = %s, want a very...", got)
	}
}
