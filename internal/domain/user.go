package domain

import "time"

// User mirrors the account object returned by GET /auth/user/.
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	FullName        string     `json:"full_name"`
	UIN             string     `json:"uin,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Role            Role       `json:"role"`
	Institution     string     `json:"institution,omitempty"`
	Bio             string     `json:"bio,omitempty"`
	ProfileImageURL string     `json:"profile_image_url,omitempty"`
	School          string     `json:"school,omitempty"`
	University      string     `json:"university,omitempty"`
	Program         string     `json:"program,omitempty"`
	Company         string     `json:"company,omitempty"`
	Specialization  string     `json:"specialization,omitempty"`
	DateJoined      *time.Time `json:"date_joined,omitempty"`
}

// UserPatch is a partial user. Nil fields are left unchanged by Apply.
type UserPatch struct {
	Email           *string `json:"email,omitempty"`
	FullName        *string `json:"full_name,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	Role            *Role   `json:"role,omitempty"`
	Institution     *string `json:"institution,omitempty"`
	Bio             *string `json:"bio,omitempty"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
	School          *string `json:"school,omitempty"`
	University      *string `json:"university,omitempty"`
	Program         *string `json:"program,omitempty"`
	Company         *string `json:"company,omitempty"`
	Specialization  *string `json:"specialization,omitempty"`

	// Read-only upstream: merged from API responses, never sent or accepted.
	UIN        *string    `json:"-"`
	DateJoined *time.Time `json:"-"`
}

// Apply shallow-merges p into u and returns the result. u is not modified.
func (p UserPatch) Apply(u User) User {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&u.Email, p.Email)
	set(&u.FullName, p.FullName)
	set(&u.Phone, p.Phone)
	set(&u.Institution, p.Institution)
	set(&u.Bio, p.Bio)
	set(&u.ProfileImageURL, p.ProfileImageURL)
	set(&u.School, p.School)
	set(&u.University, p.University)
	set(&u.Program, p.Program)
	set(&u.Company, p.Company)
	set(&u.Specialization, p.Specialization)
	set(&u.UIN, p.UIN)
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.DateJoined != nil {
		joined := *p.DateJoined
		u.DateJoined = &joined
	}
	return u
}

func (p UserPatch) Empty() bool {
	return p == UserPatch{}
}

// PatchFrom builds a patch carrying every field of u except the id.
func PatchFrom(u User) UserPatch {
	role := u.Role
	return UserPatch{
		UIN:             &u.UIN,
		DateJoined:      u.DateJoined,
		Email:           &u.Email,
		FullName:        &u.FullName,
		Phone:           &u.Phone,
		Role:            &role,
		Institution:     &u.Institution,
		Bio:             &u.Bio,
		ProfileImageURL: &u.ProfileImageURL,
		School:          &u.School,
		University:      &u.University,
		Program:         &u.Program,
		Company:         &u.Company,
		Specialization:  &u.Specialization,
	}
}

// LoginCredentials is the body of POST /auth/login/.
type LoginCredentials struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// Registration is the body of POST /auth/register/.
type Registration struct {
	FullName        string `json:"full_name" validate:"required,max=255"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=6,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Phone           string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Role            Role   `json:"role" validate:"required,role"`
	Institution     string `json:"institution,omitempty"`
	School          string `json:"school,omitempty"`
	University      string `json:"university,omitempty"`
	Program         string `json:"program,omitempty"`
	Company         string `json:"company,omitempty"`
	Specialization  string `json:"specialization,omitempty"`
	Bio             string `json:"bio,omitempty"`
}

// PasswordChange is the body of POST /auth/change-password/.
type PasswordChange struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}
