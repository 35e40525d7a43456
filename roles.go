package bookstore

// Role is the closed set of account roles. There is no hierarchy: access
// checks compare roles for exact equality.
type Role string

const (
	// RoleAdmin can manage the catalog and other accounts
	RoleAdmin Role = "admin"
	// RoleUser is the default role assigned on registration
	RoleUser Role = "user"
)

// ParseRole validates a raw role name against the closed set.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser:
		return RoleUser, nil
	}
	return "", ErrInvalidRole.Clone().WithMetadata(map[string]any{
		"role": raw,
	})
}

// Is reports whether the role matches the required role exactly.
func (r Role) Is(required Role) bool {
	return r == required
}

func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}
