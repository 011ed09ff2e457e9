package service

import (
	"errors"
)

// Familias de error. Los errores concretos envuelven una de ellas y los
// handlers deciden con errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrExpired    = errors.New("expired")
	ErrMismatch   = errors.New("mismatch")
	ErrDependency = errors.New("dependency failure")
)

// kindError lleva un mensaje apto para el cliente y la familia a la que pertenece.
type kindError struct {
	kind error
	msg  string
}

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

var (
	ErrEmptyFields       = newKindError(ErrValidation, "empty input fields")
	ErrInvalidName       = newKindError(ErrValidation, "invalid name entered")
	ErrInvalidEmail      = newKindError(ErrValidation, "invalid email entered")
	ErrInvalidDOB        = newKindError(ErrValidation, "invalid date of birth entered")
	ErrPasswordTooShort  = newKindError(ErrValidation, "password is too short")
	ErrPasswordTooLong   = newKindError(ErrValidation, "password is too long")
	ErrEmptyCredentials  = newKindError(ErrValidation, "empty credentials supplied")
	ErrNotVerified       = newKindError(ErrValidation, "email hasn't been verified yet, check your inbox")
	ErrEmptyUserDetails  = newKindError(ErrValidation, "empty user details are not allowed")
	ErrEmptyVerification = newKindError(ErrValidation, "empty verification details are not allowed")
	ErrEmailMismatch     = newKindError(ErrValidation, "email does not match the account")

	ErrEmailTaken = newKindError(ErrConflict, "user with the provided email already exists")

	ErrAccountNotFound       = newKindError(ErrNotFound, "no account found for the supplied user")
	ErrNoPendingVerification = newKindError(ErrNotFound, "account record doesn't exist or has been verified already")
	// ErrAlreadyVerified es un caso particular de ErrNoPendingVerification.
	ErrAlreadyVerified = newKindError(ErrNoPendingVerification, "account has been verified already")

	ErrVerificationExpired = newKindError(ErrExpired, "verification details have expired, please request again")
	ErrRegistrationExpired = newKindError(ErrExpired, "link has expired, please sign up again")

	ErrInvalidCode        = newKindError(ErrMismatch, "invalid code passed, check your inbox")
	ErrInvalidLink        = newKindError(ErrMismatch, "invalid verification details passed, check your inbox")
	ErrInvalidCredentials = newKindError(ErrMismatch, "invalid credentials entered")
	ErrInvalidPassword    = newKindError(ErrMismatch, "invalid password entered")

	ErrEmailDispatch = errors.New("email dispatch failed")
)

// Etapas de fallo de dependencias. El texto es lo que ve el cliente.
const (
	StageCheckExisting      = "an error occurred while checking for existing user"
	StageHashPassword       = "an error occurred while hashing password"
	StageSaveAccount        = "an error occurred while saving user account"
	StageLookupAccount      = "an error occurred while looking up the account"
	StageUpdateAccount      = "an error occurred while updating user verification status"
	StageDeleteAccount      = "an error occurred while deleting the expired account"
	StageGenerateSecret     = "an error occurred while generating the verification secret"
	StageHashSecret         = "an error occurred while hashing the verification secret"
	StageCompareSecret      = "an error occurred while comparing the supplied secret"
	StageLookupVerification = "an error occurred while checking for existing verification record"
	StageSaveVerification   = "an error occurred while saving the verification record"
	StageClearVerification  = "an error occurred while clearing verification records"
	StageSendEmail          = "verification email failed"
	StageSignupVerification = "signup succeeded but the verification email could not be sent"
)

// DependencyError indica que fallo un colaborador (store, hasher, correo).
type DependencyError struct {
	Stage string
	Err   error
}

func (e *DependencyError) Error() string {
	if e.Err == nil {
		return e.Stage
	}
	return e.Stage + ": " + e.Err.Error()
}

func (e *DependencyError) Unwrap() []error {
	return []error{ErrDependency, e.Err}
}

func dependency(stage string, err error) error {
	return &DependencyError{Stage: stage, Err: err}
}

// PublicMessage devuelve el texto que puede mostrarse al cliente para err.
func PublicMessage(err error) string {
	var dep *DependencyError
	if errors.As(err, &dep) {
		return dep.Stage
	}
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.msg
	}
	return "an unexpected error occurred"
}

// Outcome clasifica err para metricas y logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrDependency):
		return "dependency"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrMismatch):
		return "mismatch"
	default:
		return "error"
	}
}
