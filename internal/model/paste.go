package model

import "time"

// PlainText is the language tag for pastes rendered without highlighting.
const PlainText = "plaintext"

type Paste struct {
	ID   string `json:"-"`
	Text string `json:"text"`
	Lang string `json:"lang"`

	CreatedAt time.Time `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// Expired reports whether p has an expiry and it lies before now.
func (p Paste) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}

// LangOrDefault returns p.Lang, or PlainText when unset.
func (p Paste) LangOrDefault() string {
	if p.Lang == "" {
		return PlainText
	}
	return p.Lang
}
