package models

// User is a tracked profile. ID is an externally assigned 8-character
// code; Name is the unique display name. PasswordSecret holds the
// bcrypt hash, never the plaintext.
type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PasswordSecret string `json:"-"`
}
