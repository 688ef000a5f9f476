// Package models holds the domain types of the escrow service: users,
// deals, payments, and the rules that govern them.
package models

import "time"

type User struct {
	ID        int64
	Username  string
	FirstName string
	IsActive  bool
	CreatedAt time.Time
}
