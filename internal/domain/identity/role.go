package identity

// Role is the caller's role as asserted by the external authentication layer.
// The core trusts it for ownership and business-unit scoping only.
type Role string

const (
	RoleTechnician Role = "technician"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// Privileged reports whether the role may act on other technicians' records.
func (r Role) Privileged() bool {
	return r == RoleSupervisor || r == RoleAdmin
}

// Global reports whether the role is exempt from business-unit scoping.
func (r Role) Global() bool {
	return r == RoleAdmin
}
