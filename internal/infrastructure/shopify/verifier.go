package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Verifier validates Shopify request signatures. It is the sole
// authentication mechanism for both OAuth callbacks and webhook deliveries.
// All comparisons are constant-time.
type Verifier struct {
	apiSecret     string
	webhookSecret string
}

// NewVerifier creates a verifier. webhookSecret may equal apiSecret;
// programmatically registered webhooks are signed with the API secret while
// Partner-dashboard webhooks use the dedicated webhook secret, so webhook
// verification tries both.
func NewVerifier(apiSecret, webhookSecret string) *Verifier {
	return &Verifier{apiSecret: apiSecret, webhookSecret: webhookSecret}
}

// VerifyQuery validates the hmac parameter of an OAuth callback. Shopify
// computes HMAC-SHA256 over the remaining query parameters as sorted
// key=value pairs joined by "&", hex-encoded. Returns false on any
// malformed input; never panics.
func (v *Verifier) VerifyQuery(values url.Values) bool {
	given := values.Get("hmac")
	if given == "" || v.apiSecret == "" {
		return false
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, val := range values[k] {
			pairs = append(pairs, k+"="+val)
		}
	}
	message := strings.Join(pairs, "&")

	mac := hmac.New(sha256.New, []byte(v.apiSecret))
	mac.Write([]byte(message))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(given))
}

// VerifyWebhook validates the X-Shopify-Hmac-Sha256 header against the raw
// request body: base64(HMAC-SHA256(body)). Both configured secrets are
// tried. Must be called before the body is parsed.
func (v *Verifier) VerifyWebhook(body []byte, header string) bool {
	if header == "" {
		return false
	}
	if v.apiSecret != "" && webhookDigestMatches(body, header, v.apiSecret) {
		return true
	}
	if v.webhookSecret != "" && v.webhookSecret != v.apiSecret {
		return webhookDigestMatches(body, header, v.webhookSecret)
	}
	return false
}

func webhookDigestMatches(body []byte, header, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
