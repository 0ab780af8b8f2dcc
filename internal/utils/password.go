package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Decoy is a fixed bcrypt hash built at the configured cost.  Login
// compares against it when the email is unknown so that path costs the
// same as a wrong password.  The hash is built on first use.
type Decoy struct {
	cost int
	once sync.Once
	hash []byte
}

func NewDecoy(cost int) *Decoy { return &Decoy{cost: cost} }

// Verify spends one bcrypt comparison against the decoy hash.
func (d *Decoy) Verify(plain string) {
	_ = bcrypt.CompareHashAndPassword(d.Hash(), []byte(plain))
}

// Hash returns the decoy hash, building it on the first call.
func (d *Decoy) Hash() []byte {
	d.once.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("decoy-password"), d.cost)
		if err != nil {
			// out-of-range cost; HashPassword fails the same way
			h, _ = bcrypt.GenerateFromPassword([]byte("decoy-password"), bcrypt.DefaultCost)
		}
		d.hash = h
	})
	return d.hash
}
