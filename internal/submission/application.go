package submission

import (
	"fmt"
	"math/big"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/port-experimental/membership-cli/internal/api"
	"github.com/port-experimental/membership-cli/internal/config"
)

// Application is a membership application as entered by the applicant.
// Optional fields are nil when the applicant left them blank.
type Application struct {
	FirstName      string  `json:"first_name" yaml:"first_name"`
	LastName       string  `json:"last_name" yaml:"last_name"`
	Email          string  `json:"email" yaml:"email"`
	Phone          *string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Street         *string `json:"street,omitempty" yaml:"street,omitempty"`
	HouseNumber    *string `json:"house_number,omitempty" yaml:"house_number,omitempty"`
	PostalCode     *string `json:"postal_code,omitempty" yaml:"postal_code,omitempty"`
	City           *string `json:"city,omitempty" yaml:"city,omitempty"`
	Country        *string `json:"country,omitempty" yaml:"country,omitempty"`
	DateOfBirth    *string `json:"date_of_birth,omitempty" yaml:"date_of_birth,omitempty"`
	MembershipType string  `json:"membership_type" yaml:"membership_type"`
	IBAN           *string `json:"iban,omitempty" yaml:"iban,omitempty"`
	AccountHolder  *string `json:"account_holder,omitempty" yaml:"account_holder,omitempty"`
	Notes          *string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// ValidationError lists the fields an applicant has to correct.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "invalid application: " + strings.Join(parts, "; ")
}

// Optional returns nil for blank input and a pointer to the trimmed value otherwise.
func Optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Normalize trims every field, turns blank optional fields into nil,
// lowercases the email and compacts the IBAN.
func (a *Application) Normalize() {
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.LastName = strings.TrimSpace(a.LastName)
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.MembershipType = strings.TrimSpace(a.MembershipType)

	for _, p := range []**string{
		&a.Phone, &a.Street, &a.HouseNumber, &a.PostalCode, &a.City,
		&a.Country, &a.DateOfBirth, &a.AccountHolder, &a.Notes,
	} {
		if *p != nil {
			*p = Optional(**p)
		}
	}

	if a.IBAN != nil {
		compact := strings.ToUpper(strings.Join(strings.Fields(*a.IBAN), ""))
		a.IBAN = Optional(compact)
	}
}

// Validate checks the application against the configured membership types.
// An empty type list accepts any non-empty membership type.
func (a *Application) Validate(types config.MembershipTypes) error {
	fields := make(map[string]string)

	if a.FirstName == "" {
		fields["first_name"] = "is required"
	}
	if a.LastName == "" {
		fields["last_name"] = "is required"
	}
	if a.Email == "" {
		fields["email"] = "is required"
	} else if !validEmail(a.Email) {
		fields["email"] = "is not a valid email address"
	}

	if a.MembershipType == "" {
		fields["membership_type"] = "is required"
	} else if len(types) > 0 {
		if _, ok := types.Lookup(a.MembershipType); !ok {
			fields["membership_type"] = fmt.Sprintf("must be one of %s", strings.Join(types.Labels(), ", "))
		}
	}

	if a.DateOfBirth != nil {
		if _, err := time.Parse(time.DateOnly, *a.DateOfBirth); err != nil {
			fields["date_of_birth"] = "must be formatted as YYYY-MM-DD"
		}
	}
	if a.IBAN != nil && !validIBAN(*a.IBAN) {
		fields["iban"] = "is not a valid IBAN"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ContactDetails returns the contact payload for the application.
func (a *Application) ContactDetails() api.ContactDetails {
	return api.ContactDetails{
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Email:       a.Email,
		Phone:       a.Phone,
		Street:      a.Street,
		HouseNumber: a.HouseNumber,
		PostalCode:  a.PostalCode,
		City:        a.City,
		Country:     a.Country,
		DateOfBirth: a.DateOfBirth,
	}
}

// remoteType maps the membership type label to the id the API expects.
func remoteType(types config.MembershipTypes, label string) string {
	if mt, ok := types.Lookup(label); ok {
		return mt.RemoteID
	}
	return label
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	_, domain, ok := strings.Cut(s, "@")
	return ok && strings.Contains(domain, ".")
}

// validIBAN applies the ISO 13616 mod-97 check to a compact, uppercase IBAN.
func validIBAN(iban string) bool {
	if len(iban) < 15 || len(iban) > 34 {
		return false
	}
	for i, r := range iban {
		switch {
		case i < 2 && (r < 'A' || r > 'Z'):
			return false
		case i >= 2 && i < 4 && (r < '0' || r > '9'):
			return false
		case (r < 'A' || r > 'Z') && (r < '0' || r > '9'):
			return false
		}
	}

	rearranged := iban[4:] + iban[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			fmt.Fprintf(&digits, "%d", r-'A'+10)
			continue
		}
		digits.WriteRune(r)
	}

	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}
