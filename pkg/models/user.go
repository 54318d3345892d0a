package models

import "time"

// UserRole represents the role of a user
type UserRole string

const (
	RoleRider  UserRole = "rider"
	RoleDriver UserRole = "driver"
	RoleAdmin  UserRole = "admin"
)

// UserStatus represents the account status of a user
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
	UserStatusDeleted   UserStatus = "DELETED"
)

// User represents an application user. Authentication is owned by an external
// identity service; this service only reads the rows it needs for guards and
// rider name masking.
type User struct {
	UserID    int64      `json:"user_id" db:"user_id"`
	FullName  string     `json:"full_name" db:"full_name"`
	Phone     string     `json:"phone" db:"phone"`
	Role      UserRole   `json:"role" db:"role"`
	Status    UserStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
