package cmd

import (
	"math"
	"testing"
)

func TestCheckTolerance(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name      string
		tolerance *float64
		wantErr   bool
	}{
		{"unset", nil, false},
		{"default", f(0.6), false},
		{"upper bound", f(2), false},
		{"zero", f(0), true},
		{"negative", f(-1), true},
		{"above range", f(2.5), true},
		{"NaN", f(math.NaN()), true},
		{"infinite", f(math.Inf(1)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkTolerance(tt.tolerance)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkTolerance() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
