// Package authz carries the authenticated caller through the core and answers
// the ownership questions the order and payout services ask.
package authz

import (
	"errors"
	"fmt"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

var ErrForbidden = errors.New("forbidden")

type Actor struct {
	ID   int64
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ActsFor reports whether the actor may operate on resources owned by ownerID.
func (a Actor) ActsFor(ownerID int64) bool {
	return a.IsAdmin() || a.ID == ownerID
}

func (a Actor) String() string {
	return fmt.Sprintf("%s:%d", a.Role, a.ID)
}

func RequireAdmin(a Actor) error {
	if !a.IsAdmin() {
		return fmt.Errorf("%s requires admin: %w", a, ErrForbidden)
	}
	return nil
}

// RequireOwner passes admins and the owning user.
func RequireOwner(a Actor, ownerID int64) error {
	if !a.ActsFor(ownerID) {
		return fmt.Errorf("%s does not own resource of user %d: %w", a, ownerID, ErrForbidden)
	}
	return nil
}

// RequireSeller passes admins and the seller identified by sellerID.
func RequireSeller(a Actor, sellerID int64) error {
	if a.IsAdmin() {
		return nil
	}
	if a.Role != RoleSeller || a.ID != sellerID {
		return fmt.Errorf("%s is not seller %d: %w", a, sellerID, ErrForbidden)
	}
	return nil
}
