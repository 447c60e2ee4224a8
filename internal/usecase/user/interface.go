package user

import "context"

// Usecase defines the user directory operations exposed to transports.
type Usecase interface {
	CreateUser(ctx context.Context, in CreateUserRequest) (*User, error)
	GetUserByID(ctx context.Context, in GetUserRequest) (*User, error)
	GetUserByEmail(ctx context.Context, in GetUserByEmailRequest) (*User, error)
	SearchUsersByName(ctx context.Context, in SearchUsersRequest) (*ListUsersResponse, error)
	ListAllUsers(ctx context.Context) (*ListUsersResponse, error)
	UpdateUser(ctx context.Context, in UpdateUserRequest) (*User, error)
	DeleteUser(ctx context.Context, in DeleteUserRequest) (*User, error)
}
