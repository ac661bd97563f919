package enums

// UserRole gates access to administrative routes.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
)

var validUserRoles = []UserRole{UserRoleCustomer, UserRoleAdmin}

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool { return member(r, validUserRoles) }

func ParseUserRole(value string) (UserRole, error) {
	return parse("user role", value, validUserRoles, false)
}
