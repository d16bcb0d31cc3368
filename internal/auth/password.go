package auth

import "golang.org/x/crypto/bcrypt"

// Backup codes are short and hashed in batches of ten, so a low cost keeps
// generation under a second.
const bcryptCost = 8

// HashSecret returns a bcrypt hash of s.
func HashSecret(s string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(s), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifySecret reports whether s matches the hash.
func VerifySecret(hash, s string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(s)) == nil
}
