package bookings

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Well-known source names in their canonical display form.
const (
	SourceDirect     = "Direct"
	SourceAirbnb     = "Airbnb"
	SourceVRBO       = "VRBO"
	SourceBookingCom = "Booking.com"
	SourceExpedia    = "Expedia"
)

// sourceInfo describes a known source spelling and whether it is an
// external booking platform.
type sourceInfo struct {
	display  string
	platform bool
}

// knownSources maps lower-cased source spellings to their display form.
var knownSources = map[string]sourceInfo{
	"airbnb":       {SourceAirbnb, true},
	"air bnb":      {SourceAirbnb, true},
	"vrbo":         {SourceVRBO, true},
	"homeaway":     {"HomeAway", true},
	"booking.com":  {SourceBookingCom, true},
	"booking":      {SourceBookingCom, true},
	"bookingcom":   {SourceBookingCom, true},
	"expedia":      {SourceExpedia, true},
	"agoda":        {"Agoda", true},
	"tripadvisor":  {"TripAdvisor", true},
	"hometogo":     {"HomeToGo", true},
	"google":       {"Google", true},
	"direct":       {SourceDirect, false},
	"manual":       {SourceDirect, false},
	"owner":        {"Owner", false},
	"website":      {"Website", false},
	"phone":        {"Phone", false},
	"email":        {"Email", false},
	"walk-in":      {"Walk-In", false},
}

// NormalizeSource canonicalizes a platform name: known platforms map to their
// display spelling, anything else is lower-cased and title-cased per word.
// Surrounding and repeated whitespace is collapsed. An empty input stays empty.
func NormalizeSource(raw string) string {
	key := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	if key == "" {
		return ""
	}
	if info, ok := knownSources[key]; ok {
		return info.display
	}
	return cases.Title(language.Und).String(key)
}

// IsPlatform reports whether source names a recognized external booking
// platform. Direct, manual and unknown sources are not platforms.
func IsPlatform(source string) bool {
	info, ok := knownSources[strings.ToLower(strings.TrimSpace(source))]
	return ok && info.platform
}

// IsDirect reports whether source denotes a manually entered booking.
func IsDirect(source string) bool {
	return strings.EqualFold(strings.TrimSpace(source), SourceDirect)
}

// SameSource compares two sources case-insensitively.
func SameSource(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
