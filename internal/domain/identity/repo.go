package identity

import (
	"context"
)

type Repository interface {
	UserByName(ctx context.Context, name string) (*credential, error)
	UserByID(ctx context.Context, id int64) (*credential, error)
	AdminByUsername(ctx context.Context, username string) (*credential, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UserTaken(ctx context.Context, name, registration string) (bool, error)
	CreateUser(ctx context.Context, u *User, hash string) error
	DeleteUser(ctx context.Context, id int64) (bool, error)
	CreateAdmin(ctx context.Context, username, hash string) (int64, error)
	UpdateAdminPassword(ctx context.Context, id int64, hash string) (bool, error)
	RecordAccess(ctx context.Context, userID int64, action string) error
}
