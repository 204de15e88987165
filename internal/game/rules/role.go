package rules

import "fmt"

// Role identifies one side of a match.
type Role string

const (
	RoleAttacker Role = "attacker"
	RoleDefender Role = "defender"
)

// Opponent returns the other side.
func (r Role) Opponent() Role {
	if r == RoleAttacker {
		return RoleDefender
	}
	return RoleAttacker
}

// Valid reports whether r names a side.
func (r Role) Valid() bool {
	return r == RoleAttacker || r == RoleDefender
}

// Title returns the capitalised role for user-facing messages.
func (r Role) Title() string {
	switch r {
	case RoleAttacker:
		return "Attacker"
	case RoleDefender:
		return "Defender"
	}
	return string(r)
}

// ParseRole converts s to a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
