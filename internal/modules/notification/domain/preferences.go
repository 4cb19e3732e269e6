package domain

import (
	"time"

	"github.com/google/uuid"
)

type Digest string

const (
	DigestNone   Digest = "NONE"
	DigestDaily  Digest = "DAILY"
	DigestWeekly Digest = "WEEKLY"
)

// Preferences are a member's notification toggles.
type Preferences struct {
	UserID    uuid.UUID `json:"-"`
	Email     bool      `json:"email"`
	Push      bool      `json:"push"`
	Digest    Digest    `json:"digest"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func DefaultPreferences(userID uuid.UUID) Preferences {
	return Preferences{UserID: userID, Email: true, Push: true, Digest: DigestDaily}
}

// Allows reports whether the recipient accepts delivery on c. Channels
// without a toggle are always allowed.
func (p Preferences) Allows(c Channel) bool {
	switch c {
	case ChannelEmail:
		return p.Email
	case ChannelPush:
		return p.Push
	default:
		return true
	}
}

// PreferencesUpdate is a partial update; nil fields are left untouched.
type PreferencesUpdate struct {
	Email  *bool   `json:"email"`
	Push   *bool   `json:"push"`
	Digest *Digest `json:"digest" validate:"omitempty,oneof=NONE DAILY WEEKLY"`
}

func (p Preferences) Apply(u PreferencesUpdate, now time.Time) Preferences {
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.Push != nil {
		p.Push = *u.Push
	}
	if u.Digest != nil {
		p.Digest = *u.Digest
	}
	p.UpdatedAt = now
	return p
}
