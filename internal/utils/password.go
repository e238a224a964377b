package utils

import "golang.org/x/crypto/bcrypt"

// VerifyPassword safely compares a stored bcrypt hash and a plain
// password.  Staff accounts are provisioned externally, so this service
// only ever verifies.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
