// Package subject builds the distinguished-name strings passed to
// `openssl req -subj`.
package subject

import (
	"errors"
	"strings"
)

// ErrNameRequired is returned when the common name is empty.
var ErrNameRequired = errors.New("subject name is required")

// Fields holds the attributes of a certificate subject.
type Fields struct {
	Name               string
	Country            string
	State              string
	Organization       string
	OrganizationalUnit string
	Email              string
}

// Build renders f as "/CN=name/C=../ST=../O=../OU=../emailAddress=..".
// Empty optional attributes are left out. Values are not escaped.
func Build(f Fields) string {
	var b strings.Builder
	b.WriteString("/CN=")
	b.WriteString(f.Name)

	for _, attr := range []struct{ key, value string }{
		{"C", f.Country},
		{"ST", f.State},
		{"O", f.Organization},
		{"OU", f.OrganizationalUnit},
		{"emailAddress", f.Email},
	} {
		if attr.value == "" {
			continue
		}
		b.WriteString("/")
		b.WriteString(attr.key)
		b.WriteString("=")
		b.WriteString(attr.value)
	}
	return b.String()
}

// Merge returns override with every empty field taken from defaults.
func Merge(override, defaults Fields) Fields {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return Fields{
		Name:               pick(override.Name, defaults.Name),
		Country:            pick(override.Country, defaults.Country),
		State:              pick(override.State, defaults.State),
		Organization:       pick(override.Organization, defaults.Organization),
		OrganizationalUnit: pick(override.OrganizationalUnit, defaults.OrganizationalUnit),
		Email:              pick(override.Email, defaults.Email),
	}
}

// Validate checks that the common name is present.
func (f Fields) Validate() error {
	if f.Name == "" {
		return ErrNameRequired
	}
	return nil
}
