package domain

// Role represents how a participant takes part in rounds
type Role string

const (
	RoleDeveloper Role = "developer"
	RoleObserver  Role = "observer"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleDeveloper || r == RoleObserver
}

// CanVote returns true if participants with this role may cast votes
func (r Role) CanVote() bool {
	return r == RoleDeveloper
}

// ParseRole converts a raw role name into a Role
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}
