package video

import "testing"

func TestTimeStringToSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1:02:03", 3723},
		{"02:03", 123},
		{"00:00", 0},
		{"01:42:25", 6145},
		{"garbage", 0},
		{"", 0},
		{"1:2:3:4", 0},
		{"aa:10", 0},
		{" 02:03 ", 123},
	}

	for _, tt := range tests {
		if got := TimeStringToSeconds(tt.in); got != tt.want {
			t.Errorf("TimeStringToSeconds(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "00:00"},
		{123, "02:03"},
		{3723, "01:02:03"},
		{-5, "00:00"},
	}

	for _, tt := range tests {
		if got := FormatSeconds(tt.in); got != tt.want {
			t.Errorf("FormatSeconds(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSecondsFromFloat(t *testing.T) {
	if got := SecondsFromFloat(12.9); got != 12 {
		t.Errorf("SecondsFromFloat(12.9) = %d, want 12", got)
	}
	if got := SecondsFromFloat(-3); got != 0 {
		t.Errorf("SecondsFromFloat(-3) = %d, want 0", got)
	}
}
