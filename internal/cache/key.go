package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key returns the cache key for a source unit: a hex SHA-256 over the
// normalized language tag and the text. Equal text parsed as different
// languages never collides.
func Key(language, text string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(language))))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// ShortKey returns the first 8 characters of a key, for log lines.
func ShortKey(key string) string {
	if len(key) < 8 {
		return key
	}
	return key[:8]
}
