package domain

import (
	"fmt"
	"strings"
)

// User is a person that can be assigned to tasks. Only the fields needed to
// address a reminder are loaded.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate checks if the User has valid data.
func (u User) Validate() error {
	if u.ID <= 0 {
		return fmt.Errorf("%w: user id %d", ErrInvalidID, u.ID)
	}
	if !validateEmailFormat(u.Email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, u.Email)
	}
	return nil
}

// validateEmailFormat performs basic validation of email format: a non-empty
// local part, an @, and a domain with a dot that is neither first nor last.
func validateEmailFormat(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}

	domainPart := email[at+1:]
	if len(domainPart) < 3 { // minimum would be "a.b"
		return false
	}

	dot := strings.IndexByte(domainPart, '.')
	return dot > 0 && dot < len(domainPart)-1
}
