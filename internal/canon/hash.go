package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash domains. The version suffix allows changing the encoding later
// without colliding with old hashes.
const (
	DomainPlan     = "grimoire/plan/v1"
	DomainSnapshot = "grimoire/snapshot/v1"
	DomainCatalog  = "grimoire/catalog/v1"
)

// Hash returns the domain-separated SHA-256 of v's canonical encoding.
func Hash(domain string, v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return HashBytes(domain, data), nil
}

// HashBytes computes SHA256(domain || 0x00 || data) as hex.
func HashBytes(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
