package normalization

import (
	"regexp"
	"strings"
)

// 17 characters, letters I, O and Q excluded.
var vinRe = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

func ParseInputString(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeVIN uppercases and trims a declared VIN. It does not validate.
func NormalizeVIN(vin string) string {
	return strings.ToUpper(strings.TrimSpace(vin))
}

// ValidVIN reports whether vin satisfies the VIN format. The vehicle-history
// adapter requires this as a precondition and does not re-check it.
func ValidVIN(vin string) bool {
	return vinRe.MatchString(NormalizeVIN(vin))
}
