// Package domain contains entities without logic, just meta-data
package domain

import (
	"errors"
)

const (
	MaxUserIDLen   = 64
	MaxUsernameLen = 36
	MaxBioLen      = 512
)

var (
	ErrUserIDEmpty     = errors.New("user id empty")
	ErrUserIDTooLong   = errors.New("user id too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameTooLong = errors.New("username too long")
	ErrBioTooLong      = errors.New("bio too long")
)

// UserID is the stable identity handed to the relay by the application
// once the user is authenticated. The relay never generates one.
type UserID string

func (id UserID) Validate() error {
	if len(id) == 0 {
		return ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return ErrUserIDTooLong
	}
	return nil
}

// Profile is the user record kept in the profile store. The relay itself
// only ever consumes the ID; the rest serves the surrounding application.
type Profile struct {
	ID           UserID `json:"id"`
	Username     string `json:"username"`
	Bio          string `json:"bio,omitempty"`
	AvatarURL    string `json:"avatarUrl,omitempty"`
	ScrapbookRef string `json:"scrapbookRef,omitempty"`
}

// NewProfile is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewProfile(id UserID, username string) (*Profile, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	return &Profile{ID: id, Username: username}, nil
}

func (p *Profile) SetBio(bio string) error {
	if len(bio) > MaxBioLen {
		return ErrBioTooLong
	}
	p.Bio = bio
	return nil
}
