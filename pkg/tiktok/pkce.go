package tiktok

import (
	"crypto/rand"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// VerifierLength is the length of generated PKCE code verifiers.
const VerifierLength = 64

// verifierAlphabet is the RFC 7636 unreserved character set.
const verifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// GenerateCodeVerifier returns a random verifier of VerifierLength characters
// drawn uniformly from the unreserved alphabet.
func GenerateCodeVerifier() (string, error) {
	// Bytes >= limit are rejected so every character is equally likely.
	const n = len(verifierAlphabet)
	limit := byte(256 - 256%n)

	out := make([]byte, 0, VerifierLength)
	buf := make([]byte, VerifierLength)
	for len(out) < VerifierLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate verifier: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, verifierAlphabet[int(b)%n])
			if len(out) == VerifierLength {
				break
			}
		}
	}
	return string(out), nil
}

// CodeChallenge returns the S256 challenge for a verifier: the unpadded
// base64url encoding of its SHA-256 digest.
func CodeChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// AuthorizeURL builds the provider authorize URL for the given state, verifier
// and redirect URI. The challenge is derived from the verifier with S256.
func (c *Client) AuthorizeURL(state, verifier, redirectURI string) string {
	if redirectURI == "" {
		redirectURI = c.redirectURI
	}
	oc := &oauth2.Config{
		ClientID:    c.clientKey,
		RedirectURL: redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.authURL,
			TokenURL: c.baseURL + tokenPath,
		},
	}
	return oc.AuthCodeURL(state,
		oauth2.SetAuthURLParam("client_key", c.clientKey),
		// TikTok expects a comma separated scope list.
		oauth2.SetAuthURLParam("scope", strings.Join(c.scopes, ",")),
		oauth2.S256ChallengeOption(verifier),
	)
}
