package entity

import "time"

type User struct {
	ID      int64  `json:"id"`
	Address string `json:"address"`

	// EncryptedKey is the sealed signing key. The plain key is never stored.
	EncryptedKey string `json:"encrypted_key"`

	// CachedBalance is the last native balance seen, in wei. Display only.
	CachedBalance string `json:"cached_balance"`

	CreatedAt time.Time `json:"created_at"`
}

func (u User) HasKey() bool {
	return u.EncryptedKey != ""
}
