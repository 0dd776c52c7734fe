package model

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor is the authenticated caller of a request, as asserted by the gateway.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) Owns(b *Booking) bool {
	return a.UserID != "" && b != nil && a.UserID == b.UserID
}

// CanAccess reports whether the actor may read or mutate b.
func (a Actor) CanAccess(b *Booking) bool {
	return a.IsAdmin() || a.Owns(b)
}
