package timeutil

import (
	"strings"
	"time"
)

const (
	// ProviderLayout is the gateway timestamp format (dd/MM/yyyy HH:mm:ss)
	ProviderLayout = "02/01/2006 15:04:05"
	// DisplayLayout is the retailer-facing format (hh:mm:ss tt, dd MMM yyyy)
	DisplayLayout = "03:04:05 PM, 02 Jan 2006"
)

// Now returns the current time in UTC
// Always use this instead of time.Now() to ensure timezone consistency
func Now() time.Time {
	return time.Now().UTC()
}

// ParseProviderTime parses a gateway timestamp. Gateways send wall-clock
// time without a zone; it is read as UTC.
func ParseProviderTime(value string) (time.Time, error) {
	t, err := time.Parse(ProviderLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatDisplay renders t in the retailer-facing layout
func FormatDisplay(t time.Time) string {
	return t.Format(DisplayLayout)
}

// StartOfDay returns the start of the day (midnight) in UTC
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
