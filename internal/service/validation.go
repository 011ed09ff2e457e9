package service

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	// bcrypt no acepta secretos de mas de 72 bytes.
	maxPasswordBytes = 72
)

var (
	nameRe  = regexp.MustCompile(`^[A-Za-z ]*$`)
	emailRe = regexp.MustCompile(`^[\w.-]+@([\w-]+\.)+[\w-]{2,4}$`)

	dateLayouts = []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02T15:04:05",
		"01/02/2006",
		"2006/01/02",
		"January 2, 2006",
		"Jan 2, 2006",
	}
)

// SignUpInput son los campos crudos recibidos en el registro.
type SignUpInput struct {
	Name        string
	Email       string
	Password    string
	DateOfBirth string
}

func (in SignUpInput) trimmed() SignUpInput {
	return SignUpInput{
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.TrimSpace(in.Email),
		Password:    strings.TrimSpace(in.Password),
		DateOfBirth: strings.TrimSpace(in.DateOfBirth),
	}
}

// validate aplica las reglas en orden y corta en la primera que falla.
// Espera la entrada ya recortada.
func (in SignUpInput) validate() error {
	switch {
	case in.Name == "" || in.Email == "" || in.Password == "" || in.DateOfBirth == "":
		return ErrEmptyFields
	case !nameRe.MatchString(in.Name):
		return ErrInvalidName
	case !emailRe.MatchString(in.Email):
		return ErrInvalidEmail
	case !isValidDate(in.DateOfBirth):
		return ErrInvalidDOB
	case utf8.RuneCountInString(in.Password) < minPasswordLength:
		return ErrPasswordTooShort
	case len(in.Password) > maxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}

func isValidDate(value string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

func isValidOTPCode(code string) bool {
	if len(code) != otpDigits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
