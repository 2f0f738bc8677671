package session

import "time"

// Session is the authenticated identity every pipeline call runs under.
// It is created once at login and never mutated afterwards.
type Session struct {
	ID        string    `json:"-"`
	TenantID  string    `json:"-"`
	MemberID  string    `json:"-"`
	Profile   Profile   `json:"profile"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Profile holds display attributes. It never carries internal identifiers.
type Profile struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Department  string `json:"department,omitempty"`
	PlanID      string `json:"plan_id,omitempty"`
	PlanType    string `json:"plan_type,omitempty"`
	IsPrimary   bool   `json:"is_primary"`
	CompanyName string `json:"company_name"`
	Industry    string `json:"industry,omitempty"`
	BrandColor  string `json:"brand_color,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
}

// DisplayName returns the member's full name.
func (p Profile) DisplayName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// Validate checks the identity fields every downstream query depends on.
func (s *Session) Validate() error {
	if s == nil || s.TenantID == "" || s.MemberID == "" {
		return ErrInvalidSession
	}
	return nil
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token   string   `json:"token"`
	Session *Session `json:"session"`
}
