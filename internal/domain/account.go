package domain

import "time"

// AccountID is the stable external (provider open_id) identifier of an account.
type AccountID string

// String returns the string representation of the AccountID.
func (id AccountID) String() string {
	return string(id)
}

// Account is one connected TikTok identity and its token pair.
type Account struct {
	ID           AccountID `json:"id"`
	Nickname     string    `json:"nickname"`
	Avatar       string    `json:"avatar"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// WithTokens returns a copy of the account carrying the given token pair.
// An empty refresh token keeps the current one.
func (a Account) WithTokens(accessToken, refreshToken string) Account {
	a.AccessToken = accessToken
	if refreshToken != "" {
		a.RefreshToken = refreshToken
	}
	return a
}

// Redacted returns a copy with both tokens blanked, for listing over HTTP.
func (a Account) Redacted() Account {
	a.AccessToken = ""
	a.RefreshToken = ""
	return a
}

// Connected reports whether the account holds an access token.
func (a Account) Connected() bool {
	return a.AccessToken != ""
}
