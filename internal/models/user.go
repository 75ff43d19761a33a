package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	Email     string    `bun:"email,pk" json:"email"`
	FullName  string    `bun:"full_name" json:"full_name"`
	Role      Role      `bun:"role,notnull" json:"role"`
	IsFraud   bool      `bun:"is_fraud" json:"is_fraud"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}
