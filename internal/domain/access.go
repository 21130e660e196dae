package domain

import (
	"crypto/subtle"
	"fmt"
	"regexp"
	"strings"
)

// Mode is the access tier of a session.
type Mode string

const (
	ModeOwner  Mode = "owner"
	ModeGuest  Mode = "guest"
	ModePublic Mode = "public"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// Identity is the resolved result of the access gate.
type Identity struct {
	Mode     Mode   `json:"mode"`
	Username string `json:"username,omitempty"`
}

// Durable reports whether links of this identity live on the drive.
func (id Identity) Durable() bool {
	return id.Mode == ModeOwner || id.Mode == ModeGuest
}

// FileName is the drive file backing a durable identity. Public identities
// have no file.
func (id Identity) FileName() string {
	switch id.Mode {
	case ModeOwner:
		return "owner_links.xlsx"
	case ModeGuest:
		return fmt.Sprintf("guest_%s_links.xlsx", id.Username)
	default:
		return ""
	}
}

// ExportName is the filename offered for downloads.
func (id Identity) ExportName() string {
	return fmt.Sprintf("%s_links.xlsx", id.Mode)
}

// Label is a human readable description of the identity.
func (id Identity) Label() string {
	switch id.Mode {
	case ModeOwner:
		return "Logged in as Owner"
	case ModeGuest:
		return "Logged in as Guest: " + id.Username
	default:
		return "Public Mode"
	}
}

// ValidateUsername trims name and checks it can safely name a guest file.
func ValidateUsername(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrUsernameRequired
	}
	if !usernamePattern.MatchString(name) {
		return "", ErrInvalidUsername
	}
	return name, nil
}

// Gate resolves passwords to identities using two static secrets.
type Gate struct {
	ownerSecret []byte
	guestSecret []byte
}

// NewGate creates a gate for the given owner and guest secrets.
func NewGate(ownerSecret, guestSecret string) *Gate {
	return &Gate{
		ownerSecret: []byte(ownerSecret),
		guestSecret: []byte(guestSecret),
	}
}

// Authenticate returns the identity for password and username.
//
// A wrong password is not an error: it falls back to public mode. The guest
// secret without a username is rejected with ErrUsernameRequired.
func (g *Gate) Authenticate(password, username string) (Identity, error) {
	pw := []byte(password)

	if len(g.ownerSecret) > 0 && subtle.ConstantTimeCompare(pw, g.ownerSecret) == 1 {
		return Identity{Mode: ModeOwner}, nil
	}

	if len(g.guestSecret) > 0 && subtle.ConstantTimeCompare(pw, g.guestSecret) == 1 {
		name, err := ValidateUsername(username)
		if err != nil {
			return Identity{}, err
		}
		return Identity{Mode: ModeGuest, Username: name}, nil
	}

	return Public(), nil
}

// Public is the identity of "continue without credentials".
func Public() Identity {
	return Identity{Mode: ModePublic}
}
