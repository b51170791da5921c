// Package ovpn renders OpenVPN profiles from {{placeholder}} templates.
package ovpn

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrUnresolved is matched by errors for placeholders with no value.
var ErrUnresolved = errors.New("unresolved placeholder")

// UnresolvedError names the placeholder that could not be resolved.
type UnresolvedError struct {
	Key string
	Err error
}

func (e *UnresolvedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("template placeholder {{%s}}: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("template placeholder {{%s}} has no value", e.Key)
}

func (e *UnresolvedError) Is(target error) bool {
	return target == ErrUnresolved
}

func (e *UnresolvedError) Unwrap() error {
	return e.Err
}

var placeholder = regexp.MustCompile(`{{([^}]+)}}`)

// Resolver returns the replacement for a placeholder key.
type Resolver interface {
	Resolve(key string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(key string) (string, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(key string) (string, error) {
	return f(key)
}

// Render substitutes every placeholder of tmpl. The first failing lookup
// aborts rendering.
func Render(tmpl string, r Resolver) (string, error) {
	var firstErr error
	out := placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		if firstErr != nil {
			return match
		}
		key := placeholder.FindStringSubmatch(match)[1]
		v, err := r.Resolve(key)
		if err != nil {
			var unresolved *UnresolvedError
			if !errors.As(err, &unresolved) {
				err = &UnresolvedError{Key: key, Err: err}
			}
			firstErr = err
			return match
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
