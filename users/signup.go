package users

import (
	"regexp"
	"strings"

	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// SignUpRequest is the registration form.
type SignUpRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

// RequireFields fails when any field sent to the server is blank.
func (r SignUpRequest) RequireFields() error {
	for _, v := range []string{r.FirstName, r.LastName, r.Username, r.Email, r.Password} {
		if strings.TrimSpace(v) == "" {
			return apperrors.ErrAllFieldsRequired
		}
	}
	return nil
}

// FieldErrors maps a form field name to its validation message.
type FieldErrors map[string]string

func (fe FieldErrors) Valid() bool {
	return len(fe) == 0
}

// ValidateSignUp applies the registration form rules. ConfirmPassword is only
// checked when set.
func ValidateSignUp(r SignUpRequest) FieldErrors {
	errs := FieldErrors{}

	if len([]rune(strings.TrimSpace(r.FirstName))) < 2 {
		errs["firstName"] = "First name must be at least 2 characters long"
	}
	if len([]rune(strings.TrimSpace(r.LastName))) < 2 {
		errs["lastName"] = "Last name must be at least 2 characters long"
	}
	if len([]rune(strings.TrimSpace(r.Username))) < 3 {
		errs["username"] = "Username must be at least 3 characters long"
	}
	if !emailPattern.MatchString(r.Email) {
		errs["email"] = "Please enter a valid email address"
	}
	if len(r.Password) < 6 {
		errs["password"] = "Password must be at least 6 characters long"
	}
	if r.ConfirmPassword != "" && r.Password != r.ConfirmPassword {
		errs["confirmPassword"] = "Passwords do not match"
	}

	return errs
}
