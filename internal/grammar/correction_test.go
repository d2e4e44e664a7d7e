package grammar

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCorrection(t *testing.T) {
	tests := []struct {
		in      string
		want    Correction
		wantErr error
	}{
		{
			in:   "For 9:00AM-10:00AM: Gym",
			want: Correction{Start: ClockTime{9, 0}, End: ClockTime{10, 0}, Label: "Gym"},
		},
		{
			in:   "for 1:30 pm – 3:00 pm:  Deep work ",
			want: Correction{Start: ClockTime{13, 30}, End: ClockTime{15, 0}, Label: "Deep work"},
		},
		{
			in:   "FOR 11:00PM-1:00AM: Party",
			want: Correction{Start: ClockTime{23, 0}, End: ClockTime{1, 0}, Label: "Party"},
		},
		{
			in:   "for 12:00am - 12:30AM: Sleep",
			want: Correction{Start: ClockTime{0, 0}, End: ClockTime{0, 30}, Label: "Sleep"},
		},
		{in: "For 9:15-9:30: X", wantErr: ErrInvalidTime},
		{in: "For 9:15AM-9:30AM: X", wantErr: ErrUnaligned},
		{in: "For 9:00AM-9:00AM: X", wantErr: ErrUnaligned},
		{in: "For 13:00PM-2:00PM: X", wantErr: ErrInvalidTime},
		{in: "For 9:75AM-10:00AM: X", wantErr: ErrInvalidTime},
		{in: "Reading", wantErr: ErrNotCorrection},
		{in: "Coding for 1 hour", wantErr: ErrNotCorrection},
		{in: "For 9:00AM to 10:00AM: Gym", wantErr: ErrNotCorrection},
		{in: "For 9:00AM-10:00AM Gym", wantErr: ErrNotCorrection},
		{in: "Forever 9:00AM-10:00AM: Gym", wantErr: ErrNotCorrection},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCorrection(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseCorrection(%q) error = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCorrection(%q) unexpected error: %v", tt.in, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseCorrection(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestCorrectionDuration(t *testing.T) {
	c := Correction{Start: ClockTime{23, 0}, End: ClockTime{1, 0}}
	if got := c.Duration(); got != 120 {
		t.Errorf("Duration across midnight = %d, want 120", got)
	}
}
