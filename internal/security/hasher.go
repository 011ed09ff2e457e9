// Package security agrupa el hashing de contrasenas y secretos de verificacion.
package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrHash    = errors.New("hash secret")
	ErrCompare = errors.New("compare secret")
)

// Hasher produce hashes salados y compara secretos contra ellos.
type Hasher interface {
	Hash(secret string) (string, error)
	Compare(secret, hashed string) (bool, error)
}

// BcryptHasher implementa Hasher con bcrypt.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(secret string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHash, err)
	}
	return string(hashBytes), nil
}

// Compare devuelve (false, nil) solo cuando el secreto no coincide; cualquier
// otro fallo (hash corrupto, costo invalido) se reporta como ErrCompare.
func (h *BcryptHasher) Compare(secret, hashed string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(secret))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", ErrCompare, err)
	}
}
