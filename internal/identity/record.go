package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

// IdentityRecord is the contributor's externally verified account
// snapshot, fetched once per run. Immutable after resolution.
type IdentityRecord struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// StorageHash returns the SHA-256 hex digest of the account ID, used to
// reference the contributor without exposing the raw identifier.
func (r *IdentityRecord) StorageHash() string {
	sum := sha256.Sum256([]byte(r.ID))
	return hex.EncodeToString(sum[:])
}
