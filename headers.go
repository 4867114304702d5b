package tweetstream

import (
	"strings"

	stealth "github.com/anatolykoptev/go-stealth"
)

// streamHeaders returns the headers sent with every stream connection attempt.
// Authorization is added by the transport from the session's credentials.
func streamHeaders(userAgent string) map[string]string {
	h := make(map[string]string)
	// Browser user agents get matching client hints so the pair stays consistent.
	if strings.HasPrefix(userAgent, "Mozilla/") {
		for k, v := range stealth.ClientHintsHeaders(userAgent) {
			h[k] = v
		}
	}
	h["user-agent"] = userAgent
	h["accept"] = "application/json"
	return h
}
