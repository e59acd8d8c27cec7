package flights

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

const maxFlightLevel = 1000

// ParseFlightLevel converts a filed level ("FL350", "fl035", "350") to feet.
// Missing, unparseable or out of range values (above FL1000) yield 0.
func ParseFlightLevel(raw string) int {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeftFunc(s, unicode.IsLetter)
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return 0
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
	}
	if len(s) > len(strconv.Itoa(maxFlightLevel)) {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > maxFlightLevel {
		return 0
	}
	return n * 100
}

// filedDisplay formats a plan filing time the way the dashboard shows it
func filedDisplay(t time.Time) string {
	return t.UTC().Format("15:04") + "z"
}
