package auth

import (
	"github.com/angelmondragon/storefront/internal/session"
)

// LoginRequest captures the credentials posted by the login form.
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// LoginResult is what the controller needs to set cookies.
type LoginResult struct {
	SessionID string           `json:"-"`
	Record    session.Record   `json:"-"`
	Identity  session.Identity `json:"user"`
}

type SendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// Profile is the backend's view of the signed-in account.
type Profile struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role"`
	Avatar   string `json:"avatar,omitempty"`
}

// Identifier returns id, falling back to _id.
func (p Profile) Identifier() string {
	if p.ID != "" {
		return p.ID
	}
	return p.LegacyID
}

// tokenPair accepts the token field spellings the backend has used.
type tokenPair struct {
	AccessToken       string `json:"accessToken"`
	AccessTokenSnake  string `json:"access_token"`
	Token             string `json:"token"`
	RefreshToken      string `json:"refreshToken"`
	RefreshTokenSnake string `json:"refresh_token"`
}

func (t tokenPair) access() string {
	switch {
	case t.AccessToken != "":
		return t.AccessToken
	case t.AccessTokenSnake != "":
		return t.AccessTokenSnake
	}
	return t.Token
}

func (t tokenPair) refresh() string {
	if t.RefreshToken != "" {
		return t.RefreshToken
	}
	return t.RefreshTokenSnake
}
