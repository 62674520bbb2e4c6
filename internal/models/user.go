package models

import (
	"strings"
	"time"
)

// Role values stored on a user record.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Verification status values for the identity-review flow.
const (
	VerificationNone     = "none"
	VerificationPending  = "pending"
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

// User is a directory record keyed by the identity provider's subject id.
// Exactly one record exists per subject id.
type User struct {
	ID                     string    `json:"id" bson:"_id"`
	SubjectID              string    `json:"subject_id" bson:"subject_id"`
	Email                  string    `json:"email" bson:"email,omitempty"`
	Name                   string    `json:"name" bson:"name,omitempty"`
	Pseudonym              string    `json:"pseudonym" bson:"pseudonym"`
	SelfieRef              string    `json:"-" bson:"selfie_ref,omitempty"`
	IDRef                  string    `json:"-" bson:"id_ref,omitempty"`
	SelfieURL              string    `json:"selfie_url,omitempty" bson:"-"`
	IDURL                  string    `json:"id_url,omitempty" bson:"-"`
	IsApproved             bool      `json:"is_approved" bson:"is_approved"`
	IsBanned               bool      `json:"is_banned" bson:"is_banned"`
	HasCompletedOnboarding bool      `json:"has_completed_onboarding" bson:"has_completed_onboarding"`
	Role                   string    `json:"role" bson:"role"`
	VerificationStatus     string    `json:"verification_status" bson:"verification_status"`
	CreatedAt              time.Time `json:"created_at" bson:"created_at"`
}

// Principal is the authenticated actor behind a request, resolved from the
// directory once per request and passed explicitly into privileged
// operations. Never derived from ambient state.
type Principal struct {
	SubjectID string
	UserID    string
	Role      string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

type OnboardingRequest struct {
	SelfieRef string `json:"selfie_ref"`
	IDRef     string `json:"id_ref"`
}

func (r *OnboardingRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.SelfieRef) == "" {
		errors["selfie_ref"] = "Selfie image is required"
	}
	if strings.TrimSpace(r.IDRef) == "" {
		errors["id_ref"] = "ID image is required"
	}

	return errors
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (r *RegisterRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if len(r.Password) < 6 {
		errors["password"] = "Password must be at least 6 characters"
	}
	if r.Name == "" {
		errors["name"] = "Name is required"
	}

	return errors
}

func (r *LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}
