package user

// User represents a user entity in the system.
type User struct {
	ID    int64  // ID is assigned by the store on creation and never changes
	Name  string // Name is free text
	Email string // Email is unique across all users
	Age   *int   // Age is optional
	State string // State is a region or province code
	City  string
}

// UserUpdate is the change set applied by an update. Name and Email are
// always written; nil State or City leave the stored value unchanged.
// Age is deliberately absent: updates never modify it.
type UserUpdate struct {
	Name  string
	Email string
	State *string
	City  *string
}

// Apply returns a copy of u with the change set applied.
func (c UserUpdate) Apply(u User) User {
	u.Name = c.Name
	u.Email = c.Email
	if c.State != nil {
		u.State = *c.State
	}
	if c.City != nil {
		u.City = *c.City
	}
	return u
}
