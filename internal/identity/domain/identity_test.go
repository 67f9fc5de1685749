package domain

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"", RoleUser, false},
		{"user", RoleUser, false},
		{"ADMIN", RoleAdmin, false},
		{" manager ", RoleManager, false},
		{"delivery-partner", RoleDeliveryPartner, false},
		{"restaurant", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRole(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIdentity_PublicStripsHash(t *testing.T) {
	i := &Identity{ID: "u1", Email: "a@b.co", PasswordHash: "$2a$secret", Role: RoleUser}
	p := i.Public()
	if p.PasswordHash != "" {
		t.Errorf("Public().PasswordHash = %q, want empty", p.PasswordHash)
	}
	if i.PasswordHash == "" {
		t.Error("Public must not mutate the receiver")
	}
	if p.ID != "u1" || p.Email != "a@b.co" {
		t.Errorf("Public() = %+v", p)
	}
	var nilIdent *Identity
	if nilIdent.Public() != nil {
		t.Error("nil.Public() should be nil")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}
