package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Key creates a deterministic fingerprint for an ordered list of parts.
// The fingerprint is a SHA256 hash of the parts encoded as a JSON array, so
// ("a:b", "c") and ("a", "b:c") never collide.
func Key(parts ...string) string {
	if parts == nil {
		parts = []string{}
	}
	b, _ := json.Marshal(parts)
	hash := sha256.Sum256(b)
	return hex.EncodeToString(hash[:])
}

