package bookstore

import (
	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordHashCost is the bcrypt work factor used for new hashes.
const DefaultPasswordHashCost = 12

// Hasher generates and verifies bcrypt password hashes.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the given cost. Costs outside the bcrypt
// range fall back to the build default.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = passwordHashCost()
	}
	return &Hasher{cost: cost}
}

// Hash will generate a password hash
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}
	return string(hashed), nil
}

// Compare will validate the given cleartext password matches the
// hashed password
func (h *Hasher) Compare(password, hash string) error {
	if password == "" || hash == "" {
		return ErrNoEmptyString
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return errors.Wrap(err, errors.CategoryInternal, "password comparison failed")
	}
	return nil
}

// Authenticate verifies a password and, when the stored hash was minted at
// a lower cost than the hasher's current cost, returns a replacement hash
// so callers can persist the upgrade. The second return value is empty when
// no upgrade is needed.
func (h *Hasher) Authenticate(password, hash string) (string, error) {
	if err := h.Compare(password, hash); err != nil {
		return "", err
	}

	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil || cost >= h.cost {
		return "", nil
	}

	upgraded, err := h.Hash(password)
	if err != nil {
		// Verification succeeded; the upgrade is best effort.
		return "", nil
	}
	return upgraded, nil
}

// HashPassword will generate a password hash at the default cost
func HashPassword(password string) (string, error) {
	return NewHasher(passwordHashCost()).Hash(password)
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	return NewHasher(passwordHashCost()).Compare(password, hash)
}
