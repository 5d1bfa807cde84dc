package utils

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var (
	nameRegex  = regexp.MustCompile(`^[A-Za-z\s]+$`)
	emailRegex = regexp.MustCompile(`^[^\s@]+@(gmail\.com|[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\.[a-zA-Z]{2,})$`)
	phoneRegex = regexp.MustCompile(`^[0-9]{10,15}$`)
)

const passwordSpecials = "@$!%*?&"

var (
	ErrInvalidName     = errors.New("name must contain only alphabets and spaces")
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrWeakPassword    = errors.New("password must be at least 8 characters, include uppercase, lowercase, number, and special character")
	ErrInvalidPhone    = errors.New("valid phone number is required (10-15 digits)")
	ErrMissingLocation = errors.New("location is required for Donor/Volunteer")
)

func ValidateName(name string) error {
	if !nameRegex.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword requires 8+ characters from letters, digits and @$!%*?&,
// with at least one of each class.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r > unicode.MaxASCII:
			return ErrWeakPassword
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return ErrWeakPassword
		}
	}
	if !upper || !lower || !digit || !special {
		return ErrWeakPassword
	}
	return nil
}

func ValidatePhone(phone string) error {
	if !phoneRegex.MatchString(phone) {
		return ErrInvalidPhone
	}
	return nil
}

func ValidateLocation(location string) error {
	if len(strings.TrimSpace(location)) < 2 {
		return ErrMissingLocation
	}
	return nil
}
