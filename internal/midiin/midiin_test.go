// internal/midiin/midiin_test.go
package midiin

import "testing"

func TestIsNoteOn(t *testing.T) {
	testCases := []struct {
		name     string
		status   byte
		velocity byte
		want     bool
	}{
		{"note-on channel 0", 0x90, 64, true},
		{"note-on channel 5", 0x95, 1, true},
		{"note-on channel 15", 0x9F, 127, true},
		{"note-on zero velocity", 0x90, 0, false},
		{"note-off", 0x80, 64, false},
		{"polyphonic aftertouch", 0xA0, 64, false},
		{"control change", 0xB0, 64, false},
		{"program change", 0xC0, 64, false},
		{"pitch bend", 0xE0, 64, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsNoteOn(tc.status, tc.velocity); got != tc.want {
				t.Errorf("IsNoteOn(0x%02X, %d) = %v, want %v", tc.status, tc.velocity, got, tc.want)
			}
		})
	}
}
