package enums

// UserRole is a marketplace role held by an account. One account may hold both.
type UserRole string

const (
	UserRoleBuyer  UserRole = "buyer"
	UserRoleFarmer UserRole = "farmer"
)

var userRoles = []UserRole{UserRoleBuyer, UserRoleFarmer}

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool { return known(r, userRoles) }
