package video

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TimeStringToSeconds converts "MM:SS" or "HH:MM:SS" to whole seconds by
// positional parsing. Any other shape, or a non-numeric part, yields 0.
func TimeStringToSeconds(ts string) int {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0
	}

	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// SecondsFromFloat truncates a fractional offset to non-negative whole seconds.
func SecondsFromFloat(f float64) int {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	return int(math.Floor(f))
}

// FormatSeconds renders seconds as "MM:SS", or "HH:MM:SS" past an hour.
func FormatSeconds(total int) string {
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
