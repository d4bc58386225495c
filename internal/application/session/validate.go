package session

import (
	"net/mail"
	"sort"
	"strings"

	domain "marquee/internal/domain/session"
)

const minPasswordLength = 8

func normalizeCredentials(c domain.Credentials) domain.Credentials {
	c.Email = strings.TrimSpace(c.Email)
	return c
}

func validateCredentials(c domain.Credentials) error {
	if c.Email == "" {
		return &domain.ValidationError{Field: "email", Message: "Please enter your email."}
	}
	if c.Password == "" {
		return &domain.ValidationError{Field: "password", Message: "Please enter your password."}
	}
	return nil
}

func normalizeRegister(r domain.RegisterRequest) domain.RegisterRequest {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	return r
}

func validateRegister(r domain.RegisterRequest) error {
	switch {
	case r.FirstName == "":
		return &domain.ValidationError{Field: "firstName", Message: "Please enter your first name."}
	case r.LastName == "":
		return &domain.ValidationError{Field: "lastName", Message: "Please enter your last name."}
	case r.Age < 0:
		return &domain.ValidationError{Field: "age", Message: "Age cannot be negative."}
	case r.Email == "":
		return &domain.ValidationError{Field: "email", Message: "Please enter your email."}
	case len(r.Password) < minPasswordLength:
		return &domain.ValidationError{Field: "password", Message: "Password must be at least 8 characters."}
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return &domain.ValidationError{Field: "email", Message: "Please enter a valid email."}
	}
	return nil
}

// conflictMessages turns field conflicts into one user-facing message each, in a stable order
func conflictMessages(c *domain.ConflictError) []string {
	fields := make([]string, 0, len(c.Fields))
	for f := range c.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		switch f {
		case "username":
			out = append(out, "This username is already taken.")
		case "email":
			out = append(out, "An account with this email already exists.")
		default:
			out = append(out, c.Fields[f])
		}
	}
	if len(out) == 0 {
		out = append(out, "An account with these details already exists.")
	}
	return out
}
