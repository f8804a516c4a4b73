package db

import (
	"bytes"
	"strings"
	"time"
)

// ID is an identifier the backend may send either as a JSON string or as a
// JSON number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	*id = ID(strings.Trim(string(b), `"`))
	return nil
}

func (id ID) String() string { return string(id) }

// Cookie is a persisted cookie entry. The refresh token always lives here.
type Cookie struct {
	Name      string     `gorm:"primaryKey" json:"name"`
	Value     string     `json:"value"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the cookie has an expiry in the past.
func (c Cookie) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// LocalItem is a key/value pair in the durable local store.
type LocalItem struct {
	Key   string `gorm:"primaryKey;column:item_key" json:"key"`
	Value string `json:"value"`
}

// SessionRecord is the single persisted row holding the session flags and
// the signed-in user's profile.
type SessionRecord struct {
	ID         uint        `gorm:"primaryKey" json:"-"`
	SignedIn   bool        `json:"signed_in"`
	TokenValid bool        `json:"token_valid"`
	User       UserProfile `gorm:"serializer:json" json:"user"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Role is a role attached to a user profile.
type Role struct {
	ID      ID     `json:"id"`
	Libelle string `json:"libelle"`
}

// UserProfile is the profile of the signed-in user as returned by the API.
type UserProfile struct {
	ID           ID       `json:"id,omitempty"`
	Nom          string   `json:"nom,omitempty"`
	Prenom       string   `json:"prenom,omitempty"`
	Email        string   `json:"email,omitempty"`
	Photo        string   `json:"photo,omitempty"`
	Telephone    string   `json:"telephone,omitempty"`
	PublicKey    string   `json:"publicKey,omitempty"`
	MySignature  string   `json:"mySignature,omitempty"`
	Fonction     string   `json:"fonction,omitempty"`
	RolesLibelle []string `json:"rolesLibelle,omitempty"`
	Roles        []Role   `json:"roles,omitempty"`
}

// IsZero reports whether the profile is empty (signed-out state).
func (u UserProfile) IsZero() bool {
	return u.ID == "" && u.Email == "" && u.Nom == "" && u.Prenom == ""
}

// HasRole reports whether the profile carries the given role label.
func (u UserProfile) HasRole(role string) bool {
	for _, r := range u.RolesLibelle {
		if r == role {
			return true
		}
	}
	for _, r := range u.Roles {
		if r.Libelle == role {
			return true
		}
	}
	return false
}

// FullName returns "Prenom Nom".
func (u UserProfile) FullName() string {
	switch {
	case u.Prenom == "":
		return u.Nom
	case u.Nom == "":
		return u.Prenom
	}
	return u.Prenom + " " + u.Nom
}
