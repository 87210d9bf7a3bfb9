// Package users stores auth framework users through the storage adapter.
package users

import (
	"strings"

	"github.com/jrsteele09/go-auth-triplit/authmodel"
)

// NormalizeEmail returns the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Roles returns the user's roles. A role may be stored as a single name, a comma
// separated list, or a list of names.
func Roles(u *authmodel.User) []string {
	if u == nil {
		return nil
	}

	var roles []string
	add := func(s string) {
		for _, r := range strings.Split(s, ",") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, r)
			}
		}
	}

	switch r := u.Role.(type) {
	case string:
		add(r)
	case []string:
		for _, s := range r {
			add(s)
		}
	case []any:
		for _, v := range r {
			if s, ok := v.(string); ok {
				add(s)
			}
		}
	}
	return roles
}

// HasRole checks if the user has the named role
func HasRole(u *authmodel.User, role string) bool {
	for _, r := range Roles(u) {
		if r == role {
			return true
		}
	}
	return false
}
