package restyle

import "testing"

func TestPickLine(t *testing.T) {
	cases := []struct {
		name          string
		explicitGiven bool
		matches       []bool
		wantExplicit  bool
		wantIndex     int
	}{
		{
			name:          "explicit target wins",
			explicitGiven: true,
			matches:       []bool{true, true},
			wantExplicit:  true,
			wantIndex:     -1,
		},
		{
			name:      "first matching line wins",
			matches:   []bool{false, true, true},
			wantIndex: 1,
		},
		{
			name:      "mainline marker matches",
			matches:   []bool{true, false},
			wantIndex: 0,
		},
		{
			name:      "no match falls back to most general line",
			matches:   []bool{false, false, false},
			wantIndex: 0,
		},
		{
			name:      "no lines still falls back to zero",
			matches:   nil,
			wantIndex: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			useExplicit, idx := pickLine(tc.explicitGiven, tc.matches)
			if useExplicit != tc.wantExplicit || idx != tc.wantIndex {
				t.Fatalf("pickLine(%v, %v) = (%v, %d), want (%v, %d)",
					tc.explicitGiven, tc.matches, useExplicit, idx, tc.wantExplicit, tc.wantIndex)
			}
		})
	}
}
