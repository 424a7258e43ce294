package enums

// MemberRole is the organization-level permissions role carried in access tokens.
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleSales  MemberRole = "sales"
	MemberRoleViewer MemberRole = "viewer"
)

func (v MemberRole) String() string {
	return string(v)
}

var validMemberRoles = []MemberRole{MemberRoleAdmin, MemberRoleSales, MemberRoleViewer}

func (v MemberRole) IsValid() bool {
	return known(validMemberRoles, v)
}

// CanWrite reports whether the role may mutate organization data.
// Viewers are limited to reads, calculators and exports.
func (v MemberRole) CanWrite() bool {
	return v == MemberRoleAdmin || v == MemberRoleSales
}

func ParseMemberRole(value string) (MemberRole, error) {
	return parse(validMemberRoles, value, "member role")
}
