package domain

import (
	"encoding/json"
	"testing"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"O_LEVEL", true},
		{"TERTIARY", true},
		{"SUPERUSER", true},
		{"GENERAL", true},
		{"", false},
		{"admin", false},
		{"o_level", false},
	}

	for _, c := range cases {
		_, err := ParseRole(c.in)
		if (err == nil) != c.ok {
			t.Fatalf("ParseRole(%q) err=%v, want ok=%v", c.in, err, c.ok)
		}
		if err != nil && !Is(err, "invalid_role") {
			t.Fatalf("expected invalid_role, got %v", err)
		}
	}
}

func TestLandingPath_EveryRoleHasOne(t *testing.T) {
	for _, r := range AllRoles {
		if r.LandingPath() == "/" || r.LandingPath() == "" {
			t.Fatalf("role %s has no landing path", r)
		}
	}
	if Role("NOPE").LandingPath() != "/" {
		t.Fatalf("unknown role should land on /")
	}
}

func TestLandingPath_AdminsShareDashboard(t *testing.T) {
	for _, r := range []Role{RoleInstitutionAdmin, RoleMinistryAdmin, RoleSuperuser} {
		if r.LandingPath() != "/dashboard/admin" {
			t.Fatalf("%s landing = %s", r, r.LandingPath())
		}
	}
	if RoleTertiaryStudent.LandingPath() != "/dashboard/university" {
		t.Fatalf("tertiary landing = %s", RoleTertiaryStudent.LandingPath())
	}
}

func TestCan(t *testing.T) {
	if !RoleOLevelStudent.Can(CapCourses) {
		t.Fatalf("students should see courses")
	}
	if RoleEmployer.Can(CapCourses) {
		t.Fatalf("employers should not see courses")
	}
	if !RoleEmployer.Can(CapApplications) {
		t.Fatalf("employers should see applications")
	}
	if RoleGeneral.Can(CapJobs) {
		t.Fatalf("general users should not see jobs")
	}
	if Role("NOPE").Can(CapCareers) {
		t.Fatalf("unknown role should have no capabilities")
	}
}

func TestCapabilities_ReturnsCopy(t *testing.T) {
	caps := RoleMentor.Capabilities()
	caps[0] = CapUserAdmin

	if RoleMentor.Can(CapUserAdmin) {
		t.Fatalf("mutating the returned slice changed the table")
	}
}

func TestRolesWith(t *testing.T) {
	got := RolesWith(CapCourses)
	want := []Role{RoleOLevelStudent, RoleALevelStudent, RoleTertiaryStudent, RoleLecturer}
	if len(got) != len(want) {
		t.Fatalf("RolesWith(courses) = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("RolesWith(courses)[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if len(RolesWith(CapCareers)) != len(AllRoles) {
		t.Fatalf("every role should see careers")
	}
}

func TestRoleGroups(t *testing.T) {
	if !RoleALevelStudent.IsStudent() || RoleLecturer.IsStudent() {
		t.Fatalf("IsStudent mismatch")
	}
	if !RoleMinistryAdmin.IsAdmin() || RoleEmployer.IsAdmin() {
		t.Fatalf("IsAdmin mismatch")
	}
}

func TestRole_UnmarshalJSON(t *testing.T) {
	var u struct {
		Role Role `json:"role"`
	}
	if err := json.Unmarshal([]byte(`{"role":"MENTOR"}`), &u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Role != RoleMentor {
		t.Fatalf("got %s", u.Role)
	}

	if err := json.Unmarshal([]byte(`{"role":"WIZARD"}`), &u); err == nil {
		t.Fatalf("expected unknown role to fail")
	}
	if err := json.Unmarshal([]byte(`{"role":3}`), &u); err == nil {
		t.Fatalf("expected non-string role to fail")
	}
}
