package model

import "time"

// Account is a tenant that owns model configs. The earliest-created super
// admin is the template owner whose configs seed new accounts.
type Account struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	SuperAdmin bool      `json:"super_admin"`
	CreatedAt  time.Time `json:"created_at"`
}
