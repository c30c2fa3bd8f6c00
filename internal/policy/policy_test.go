package policy

import (
	"errors"
	"testing"
)

func TestCheckCreationQuota(t *testing.T) {
	tests := []struct {
		name          string
		role          Role
		lifetimeCount int
		wantErr       bool
	}{
		{"user under quota", RoleUser, 2, false},
		{"user at quota", RoleUser, 3, true},
		{"user over quota", RoleUser, 7, true},
		{"agent has no quota", RoleAgent, 50, false},
		{"manager has no quota", RoleManager, 50, false},
		{"admin has no quota", RoleAdmin, 50, false},
		{"unknown role treated as user", Role("ghost"), 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CheckCreation(tt.role, tt.lifetimeCount, 1000, "USD", false)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckCreation err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var qe *QuotaExceededError
				if !errors.As(err, &qe) {
					t.Fatalf("want QuotaExceededError, got %T", err)
				}
				if qe.Count != tt.lifetimeCount || qe.Limit != ListingQuota {
					t.Fatalf("error details = %d/%d, want %d/%d", qe.Count, qe.Limit, tt.lifetimeCount, ListingQuota)
				}
			}
		})
	}
}

func TestCheckCreationPriceCeiling(t *testing.T) {
	// 20000 is above the 15000 ceiling; 3% of 20000 is 600.
	dec, err := CheckCreation(RoleUser, 0, 20000, "USD", false)
	var pe *PriceCeilingError
	if !errors.As(err, &pe) {
		t.Fatalf("want PriceCeilingError, got %v (decision %+v)", err, dec)
	}
	if pe.Price != 20000 || pe.Ceiling != PriceCeiling {
		t.Fatalf("error carries price=%d ceiling=%d", pe.Price, pe.Ceiling)
	}
	if !pe.RequiresApproval || pe.Commission != 600 {
		t.Fatalf("error should offer approval with commission 600, got %+v", pe)
	}

	// Same price through the approval path succeeds and flags moderation.
	dec, err = CheckCreation(RoleUser, 0, 20000, "USD", true)
	if err != nil {
		t.Fatalf("approval path should pass the gate: %v", err)
	}
	if !dec.RequiresApproval || dec.Commission != 600 {
		t.Fatalf("decision = %+v, want approval with commission 600", dec)
	}

	// At the ceiling exactly is allowed without approval.
	dec, err = CheckCreation(RoleUser, 0, PriceCeiling, "USD", false)
	if err != nil || dec.RequiresApproval {
		t.Fatalf("price at ceiling should pass cleanly, got %+v / %v", dec, err)
	}

	// Agents have no ceiling at all.
	dec, err = CheckCreation(RoleAgent, 0, 1_000_000, "USD", false)
	if err != nil || dec.RequiresApproval {
		t.Fatalf("agent should have no ceiling, got %+v / %v", dec, err)
	}
}

func TestCheckCreationQuotaBeatsCeiling(t *testing.T) {
	// A user who is both over quota and over the ceiling gets the quota
	// error; the approval path cannot rescue a quota violation.
	_, err := CheckCreation(RoleUser, 3, 20000, "USD", true)
	var qe *QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("want QuotaExceededError, got %v", err)
	}
}

func TestToReference(t *testing.T) {
	tests := []struct {
		amount   int64
		currency string
		want     int64
	}{
		{100, "USD", 100},
		{100, "usd", 100},
		{10000, "EUR", 10800},
		{1_000_000, "KZT", 2100},
		{500, "XXX", 500}, // unknown codes pass through unchanged
		{500, "", 500},
	}
	for _, tt := range tests {
		if got := ToReference(tt.amount, tt.currency); got != tt.want {
			t.Errorf("ToReference(%d, %q) = %d, want %d", tt.amount, tt.currency, got, tt.want)
		}
	}
}

func TestCommissionRounding(t *testing.T) {
	tests := []struct {
		price int64
		want  int64
	}{
		{20000, 600},
		{15001, 450}, // 450.03 rounds down
		{16683, 500}, // 500.49 rounds down
		{16684, 501}, // 500.52 rounds up
	}
	for _, tt := range tests {
		if got := Commission(tt.price); got != tt.want {
			t.Errorf("Commission(%d) = %d, want %d", tt.price, got, tt.want)
		}
	}
}

func TestCapabilityFor(t *testing.T) {
	if c := CapabilityFor(RoleAdmin); !c.CanModerate || c.HasQuota {
		t.Fatalf("admin capability = %+v", c)
	}
	if c := CapabilityFor(RoleManager); c.HasQuota || c.HasPriceCeiling || c.CanModerate {
		t.Fatalf("manager capability = %+v", c)
	}
	if c := CapabilityFor(Role("nonsense")); !c.HasQuota || !c.HasPriceCeiling {
		t.Fatalf("unknown role should get the restrictive row, got %+v", c)
	}
}
