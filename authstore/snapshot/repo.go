package snapshot

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/jrsteele09/go-clinic-portal/users"
)

// Snapshot is the persisted part of an Auth Store. Tokens are not part of it: they live in cookies.
// Session is the Fingerprint of the refresh token the snapshot was saved for.
type Snapshot struct {
	Profile *users.Profile `json:"profile"`
	Session string         `json:"session"`
	SavedAt time.Time      `json:"savedAt"`
}

// Fingerprint identifies a session by its refresh token without storing the token.
func Fingerprint(refreshToken string) string {
	if refreshToken == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}

// BelongsTo reports whether the snapshot was saved for the session with fingerprint.
func (s Snapshot) BelongsTo(fingerprint string) bool {
	return fingerprint != "" && subtle.ConstantTimeCompare([]byte(s.Session), []byte(fingerprint)) == 1
}

// Repo persists snapshots keyed by the session's token subject.
type Repo interface {
	Upsert(key string, snapshot Snapshot) error
	Get(key string) (Snapshot, error)
	Delete(key string) error
}
