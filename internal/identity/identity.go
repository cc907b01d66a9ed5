package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hasher maps raw contact identifiers to the salted one-way hash used as
// the storage key. The raw identifier never leaves per-request processing.
type Hasher struct {
	salt string
}

func NewHasher(salt string) *Hasher {
	return &Hasher{salt: salt}
}

func (h *Hasher) Hash(raw string) string {
	sum := sha256.Sum256([]byte(h.salt + NormalizePhone(raw)))
	return hex.EncodeToString(sum[:])
}

// NormalizePhone reduces a messaging-platform phone identifier to bare
// digits without leading zeros, defaulting to the Brazilian country code
// the way the WhatsApp Cloud API reports numbers.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	phone := strings.TrimLeft(b.String(), "0")
	if len(phone) >= 10 && !strings.HasPrefix(phone, "55") {
		phone = "55" + phone
	}
	return phone
}
