package util

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatPrice renders a price in minor units as a euro string.
// E.g. 4667 -> "€46.67".
func FormatPrice(amount int64) string {
	return "€" + decimal.NewFromInt(amount).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// FormatQuantity renders a unit count for notification messages.
// E.g. 1 -> "1 unit", 12500 -> "12,500 units".
func FormatQuantity(quantity int) string {
	unit := "units"
	if quantity == 1 {
		unit = "unit"
	}
	return fmt.Sprintf("%s %s", humanize.Comma(int64(quantity)), unit)
}

// TruncateContent shortens a title for notification payloads.
func TruncateContent(title string, maxLength int) string {
	if len(title) <= maxLength {
		return title
	}
	return title[:maxLength] + "..."
}

func BoolPointer(b bool) *bool {
	return &b
}

func StringPointer(s string) *string {
	return &s
}

func Int32Pointer(i int32) *int32 {
	return &i
}

func Int64Pointer(i int64) *int64 {
	return &i
}

func TimePointer(t time.Time) *time.Time {
	return &t
}
