package shopify

import (
	"strings"

	"convertly-shopify-app/internal/domain"
)

// Shopify offline tokens are shpat_ + 32 hex chars = 38 total; other prefix
// families share the length floor.
const minAccessTokenLength = 38

var accessTokenPrefixes = []string{"shpat_", "shpca_", "shppa_", "shpua_"}

// SanitizeAccessToken trims a freshly exchanged token and checks it for a
// plausible length and a known prefix family. A token failing the check is
// treated as transport corruption and must never be persisted.
func SanitizeAccessToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	if len(token) < minAccessTokenLength {
		return "", domain.ErrInvalidAccessToken
	}
	for _, prefix := range accessTokenPrefixes {
		if strings.HasPrefix(token, prefix) {
			return token, nil
		}
	}
	return "", domain.ErrInvalidAccessToken
}
