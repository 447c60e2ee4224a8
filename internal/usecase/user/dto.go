package user

import domain "user-directory-service/internal/domain/user"

// CreateUserRequest represents the request payload for creating a new user.
// Only presence is checked; the store decides everything else.
type CreateUserRequest struct {
	Name  string `validate:"required"`
	Email string `validate:"required"`
	Age   *int
	State string
	City  string
}

// UpdateUserRequest represents the request payload for updating an existing user.
// Age is accepted for symmetry with CreateUserRequest but is never written.
type UpdateUserRequest struct {
	ID    int64
	Name  string `validate:"required"`
	Email string `validate:"required"`
	Age   *int
	State *string
	City  *string
}

// GetUserRequest represents the request payload for retrieving a user by ID.
type GetUserRequest struct {
	ID int64
}

// GetUserByEmailRequest represents the request payload for retrieving a user by email.
type GetUserByEmailRequest struct {
	Email string `validate:"required"`
}

// SearchUsersRequest represents the request payload for a name substring search.
type SearchUsersRequest struct {
	Name string
}

// DeleteUserRequest represents the request payload for deleting a user.
type DeleteUserRequest struct {
	ID int64
}

// ListUsersResponse represents the response payload for user listings.
type ListUsersResponse struct {
	Users []User
}

// User represents a user DTO (Data Transfer Object) for API responses.
type User struct {
	ID    int64
	Name  string
	Email string
	Age   *int
	State string
	City  string
}

func toDTO(u *domain.User) *User {
	return &User{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Age:   u.Age,
		State: u.State,
		City:  u.City,
	}
}

func toDTOs(users []domain.User) []User {
	out := make([]User, len(users))
	for i := range users {
		out[i] = *toDTO(&users[i])
	}
	return out
}
