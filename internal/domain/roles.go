package domain

import (
	"encoding/json"
	"fmt"
)

// Role is the closed set of account roles issued by the NeXTStep API.
type Role string

const (
	RoleOLevelStudent    Role = "O_LEVEL"
	RoleALevelStudent    Role = "A_LEVEL"
	RoleTertiaryStudent  Role = "TERTIARY"
	RoleLecturer         Role = "LECTURER"
	RoleMentor           Role = "MENTOR"
	RoleEmployer         Role = "EMPLOYER"
	RoleInstitutionAdmin Role = "INST_ADMIN"
	RoleMinistryAdmin    Role = "MIN_ADMIN"
	RoleSuperuser        Role = "SUPERUSER"
	RoleGeneral          Role = "GENERAL"
)

// AllRoles lists every role in display order.
var AllRoles = []Role{
	RoleOLevelStudent,
	RoleALevelStudent,
	RoleTertiaryStudent,
	RoleLecturer,
	RoleMentor,
	RoleEmployer,
	RoleInstitutionAdmin,
	RoleMinistryAdmin,
	RoleSuperuser,
	RoleGeneral,
}

// Capability names a role-scoped area of the platform.
type Capability string

const (
	CapCourses          Capability = "courses"
	CapCareers          Capability = "careers"
	CapJobs             Capability = "jobs"
	CapLearning         Capability = "learning"
	CapUserAdmin        Capability = "user_admin"
	CapSettings         Capability = "settings"
	CapCourseManagement Capability = "course_management"
	CapJobManagement    Capability = "job_management"
	CapApplications     Capability = "applications"
	CapMentees          Capability = "mentees"
	CapMentorResources  Capability = "mentor_resources"
)

type roleInfo struct {
	label        string
	landing      string
	capabilities []Capability
}

var (
	studentCaps = []Capability{CapCourses, CapCareers, CapJobs, CapLearning}
	adminCaps   = []Capability{CapCareers, CapLearning, CapUserAdmin, CapSettings}
)

// roleTable is the one place redirect targets and capabilities are defined.
var roleTable = map[Role]roleInfo{
	RoleOLevelStudent:   {label: "O Level Student", landing: "/dashboard/o-level", capabilities: studentCaps},
	RoleALevelStudent:   {label: "A Level Student", landing: "/dashboard/a-level", capabilities: studentCaps},
	RoleTertiaryStudent: {label: "Tertiary Student", landing: "/dashboard/university", capabilities: studentCaps},
	RoleLecturer: {label: "Lecturer", landing: "/dashboard/lecturer", capabilities: []Capability{
		CapCourses, CapCareers, CapLearning, CapCourseManagement,
	}},
	RoleMentor: {label: "Mentor", landing: "/dashboard/mentor", capabilities: []Capability{
		CapCareers, CapLearning, CapMentees, CapMentorResources,
	}},
	RoleEmployer: {label: "Employer", landing: "/dashboard/employer", capabilities: []Capability{
		CapCareers, CapJobs, CapLearning, CapJobManagement, CapApplications,
	}},
	RoleInstitutionAdmin: {label: "Institution Admin", landing: "/dashboard/admin", capabilities: adminCaps},
	RoleMinistryAdmin:    {label: "Ministry Admin", landing: "/dashboard/admin", capabilities: adminCaps},
	RoleSuperuser:        {label: "Superuser", landing: "/dashboard/admin", capabilities: adminCaps},
	RoleGeneral:          {label: "General User", landing: "/dashboard/general", capabilities: []Capability{CapCareers, CapLearning}},
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", ErrInvalidRole(s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := roleTable[r]
	return ok
}

func (r Role) String() string { return string(r) }

// Label is the human readable name used by the backend admin.
func (r Role) Label() string { return roleTable[r].label }

// LandingPath returns the canonical dashboard route for the role, or "/" when
// the role is unknown.
func (r Role) LandingPath() string {
	if info, ok := roleTable[r]; ok {
		return info.landing
	}
	return "/"
}

// Capabilities returns a copy of the role's capability set.
func (r Role) Capabilities() []Capability {
	caps := roleTable[r].capabilities
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}

func (r Role) Can(c Capability) bool {
	for _, have := range roleTable[r].capabilities {
		if have == c {
			return true
		}
	}
	return false
}

func (r Role) IsStudent() bool {
	return r == RoleOLevelStudent || r == RoleALevelStudent || r == RoleTertiaryStudent
}

func (r Role) IsAdmin() bool {
	return r == RoleInstitutionAdmin || r == RoleMinistryAdmin || r == RoleSuperuser
}

// RolesWith returns every role holding capability c, in AllRoles order.
func RolesWith(c Capability) []Role {
	var out []Role
	for _, r := range AllRoles {
		if r.Can(c) {
			out = append(out, r)
		}
	}
	return out
}

func (r *Role) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("role: %w", err)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
