package security

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/omnisphere/auth-service/internal/domain"
)

// BcryptHasher hashes passwords with a configurable cost. Tests use a low
// cost; production wiring uses 12.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", domain.ErrHashFailed(err)
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Compare(hash string, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
