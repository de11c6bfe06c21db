package models

import (
	"errors"
	"math"
	"testing"
)

func TestAddChecked(t *testing.T) {
	tests := []struct {
		name     string
		a, b     int64
		want     int64
		overflow bool
	}{
		{"simple", 600, 400, 1000, false},
		{"zero", 0, 0, 0, false},
		{"at max", math.MaxInt64 - 1, 1, math.MaxInt64, false},
		{"over max", math.MaxInt64, 1, 0, true},
		{"large pair", math.MaxInt64 / 2, math.MaxInt64/2 + 2, 0, true},
		{"negative ok", -100, 50, -50, false},
		{"under min", math.MinInt64, -1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AddChecked(tt.a, tt.b)
			if tt.overflow {
				if !errors.Is(err, ErrAmountOverflow) {
					t.Fatalf("AddChecked(%d, %d) err = %v, want ErrAmountOverflow", tt.a, tt.b, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddChecked(%d, %d) unexpected error: %v", tt.a, tt.b, err)
			}
			if got != tt.want {
				t.Errorf("AddChecked(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
