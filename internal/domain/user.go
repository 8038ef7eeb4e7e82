package domain

// Role represents the role of an authenticated actor.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleDriver   Role = "driver"
	RoleAdmin    Role = "admin"
)

// Actor is the verified identity attached to a request by the auth
// middleware. Session issuance happens in an external identity service;
// this subsystem only consumes the {id, role} pair.
type Actor struct {
	ID   string
	Role Role
}

// IsParty reports whether the actor is the order's customer or assigned driver.
func (a Actor) IsParty(o *Order) bool {
	return a.ID == o.CustomerID || (o.DriverID != "" && a.ID == o.DriverID)
}
