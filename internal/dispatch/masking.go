package dispatch

import (
	"strings"
	"unicode"
)

// MaskRiderName reduces a rider's full name to first name plus uppercased
// last initial, e.g. "asha verma" -> "asha V.". Single-token names pass
// through unchanged and empty names become "Customer". The function is
// idempotent.
func MaskRiderName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return "Customer"
	}
	if len(fields) == 1 {
		return fields[0]
	}

	last := fields[len(fields)-1]
	initial := unicode.ToUpper([]rune(last)[0])
	return fields[0] + " " + string(initial) + "."
}
