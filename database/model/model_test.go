package model

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"admin", RoleAdmin},
		{"user", RoleUser},
		{"", RoleUser},
		{"Admin", RoleUser},
		{"superuser", RoleUser},
	}
	for _, tc := range tests {
		if got := ParseRole(tc.in); got != tc.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{"FREE", TierFree},
		{"GYANI", TierGyani},
		{"PRAGYANI", TierPragyani},
		{"PRAGYANI_PLUS", TierPragyaniPlus},
		{"", TierFree},
		{"gyani", TierFree},
		{"PLATINUM", TierFree},
	}
	for _, tc := range tests {
		if got := ParseTier(tc.in); got != tc.want {
			t.Errorf("ParseTier(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTierAtLeast(t *testing.T) {
	tests := []struct {
		have     Tier
		required Tier
		want     bool
	}{
		{TierFree, TierFree, true},
		{TierFree, TierGyani, false},
		{TierGyani, TierFree, true},
		{TierGyani, TierGyani, true},
		{TierGyani, TierPragyani, false},
		{TierPragyani, TierGyani, true},
		{TierPragyaniPlus, TierPragyani, true},
		{TierPragyani, TierPragyaniPlus, false},
	}
	for _, tc := range tests {
		if got := tc.have.AtLeast(tc.required); got != tc.want {
			t.Errorf("%q.AtLeast(%q) = %v, want %v", tc.have, tc.required, got, tc.want)
		}
	}
}
