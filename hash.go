package polytlai

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashText computes the SHA-256 hash of the trimmed text.
func HashText(text string) string {
	trimmed := strings.TrimSpace(text)
	hash := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(hash[:])
}

// CacheKey identifies one provider's translation of a text between two
// languages. The model is part of the key so overriding it in config never
// serves a stale translation.
func CacheKey(hash, sourceLang, targetLang string, provider ProviderID, model string) string {
	return hash + ":" + sourceLang + ":" + targetLang + ":" + string(provider) + ":" + model
}
