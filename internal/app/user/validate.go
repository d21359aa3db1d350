package user

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"popx/internal/pkg/errs"
)

const (
	// MinPasswordLength and MaxPasswordLength bound accepted passwords. bcrypt ignores input past 72 bytes.
	MinPasswordLength = 6
	MaxPasswordLength = 72

	// PhoneDigits is the exact number of digits a phone number must have.
	PhoneDigits = 10

	maxNameLength  = 100
	maxEmailLength = 254
)

// Registration is the input of a new account.
type Registration struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// ValidateName checks a display name.
func ValidateName(name string) *errs.CustomError {
	err := validation.Validate(strings.TrimSpace(name),
		validation.Required,
		validation.Length(1, maxNameLength),
	)
	if err != nil {
		return errs.NewError(errs.ErrInvalidName)
	}
	return nil
}

// ValidateEmail checks an email address.
func ValidateEmail(email string) *errs.CustomError {
	err := validation.Validate(strings.TrimSpace(email),
		validation.Required,
		validation.Length(3, maxEmailLength),
		is.Email,
	)
	if err != nil {
		return errs.NewError(errs.ErrInvalidEmail)
	}
	return nil
}

// ValidatePhone checks that phone is exactly PhoneDigits digits.
func ValidatePhone(phone string) *errs.CustomError {
	err := validation.Validate(phone,
		validation.Required,
		validation.Length(PhoneDigits, PhoneDigits),
		is.Digit,
	)
	if err != nil {
		return errs.NewError(errs.ErrInvalidPhone)
	}
	return nil
}

// ValidatePassword checks the password length.
func ValidatePassword(password string) *errs.CustomError {
	err := validation.Validate(password,
		validation.Required,
		validation.Length(MinPasswordLength, MaxPasswordLength),
	)
	if err != nil {
		return errs.NewError(errs.ErrInvalidPassword)
	}
	return nil
}

// Validate checks every registration field in form order and returns the first failure.
func (r Registration) Validate() *errs.CustomError {
	if err := ValidateName(r.Name); err != nil {
		return err
	}
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	if err := ValidatePhone(r.Phone); err != nil {
		return err
	}
	return ValidatePassword(r.Password)
}

// Validate checks only the fields present in the patch. A present field is held to
// the same rules as at registration, so a present empty name is rejected rather than
// silently ignored.
func (p ProfilePatch) Validate() *errs.CustomError {
	if name, ok := p.Name.Get(); ok {
		if err := ValidateName(name); err != nil {
			return err
		}
	}
	if email, ok := p.Email.Get(); ok {
		if err := ValidateEmail(email); err != nil {
			return err
		}
	}
	if phone, ok := p.Phone.Get(); ok {
		if err := ValidatePhone(phone); err != nil {
			return err
		}
	}
	return nil
}
