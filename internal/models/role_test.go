package models

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"admin", RoleAdmin, false},
		{"project_lead", RoleProjectLead, false},
		{"developer", RoleDeveloper, false},
		{"Admin", "", true},
		{"user", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRole(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %q, expected %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRoles_AllValid(t *testing.T) {
	if len(Roles) != 3 {
		t.Fatalf("expected 3 roles, got %d", len(Roles))
	}
	for _, r := range Roles {
		if !r.Valid() {
			t.Errorf("role %q should be valid", r)
		}
	}
}

func TestProject_Membership(t *testing.T) {
	p := &Project{Members: []string{"u1", "u2"}}

	if !p.HasMember("u1") {
		t.Error("u1 should be a member")
	}
	if p.HasMember("u3") {
		t.Error("u3 should not be a member")
	}
	if p.TeamSize() != 2 {
		t.Errorf("TeamSize = %d, expected 2", p.TeamSize())
	}
}

func TestProjectStatus_Valid(t *testing.T) {
	if !ProjectActive.Valid() || !ProjectCompleted.Valid() {
		t.Error("active and completed should be valid")
	}
	if ProjectStatus("archived").Valid() {
		t.Error("archived should not be valid")
	}
}
