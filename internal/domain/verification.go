package domain

import "time"

// VerificationKind distingue el canal con que se emitio el secreto.
type VerificationKind string

const (
	VerificationLink VerificationKind = "link"
	VerificationOTP  VerificationKind = "otp"
)

// Verification es un secreto pendiente de consumo, guardado solo como hash.
type Verification struct {
	ID         string           `json:"id"`
	UserID     string           `json:"userId"`
	Kind       VerificationKind `json:"kind"`
	SecretHash string           `json:"-"`
	CreatedAt  time.Time        `json:"createdAt"`
	ExpiresAt  time.Time        `json:"expiresAt"`
}

// Expired reporta si el registro vencio respecto de now.
func (v Verification) Expired(now time.Time) bool {
	return v.ExpiresAt.Before(now)
}
