package tournament

import (
	"crypto/rand"
	"math/big"
)

// Room passwords travel inside an osump:// link where a space would cut the
// invite short, so the alphabet carries no spaces.
const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-"

const passwordLength = 8

// GeneratePassword returns an 8 character URL-safe room password.
func GeneratePassword() (string, error) {
	out := make([]byte, passwordLength)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}
