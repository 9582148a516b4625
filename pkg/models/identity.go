// Package models holds the plain-data entity types shared by the
// Identity and Work stores and by the engines that operate on them.
// Engines (pkg/specengine, pkg/conflictengine, pkg/qualityengine) never
// import a store package — they accept and return these types directly.
package models

import "time"

// User is an Identity-store entity. Credentials and refresh tokens live
// alongside it in the Identity store but are never loaded into engine
// context; only the opaque ID crosses into the Work store.
type User struct {
	ID           string
	Handle       string
	PasswordHash string
	IsAdmin      bool
	TeamID       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ShareRole is the role granted by a cross-project share record.
type ShareRole string

// Share roles. Cross-project sharing is always explicit — never implied
// by ownership transfer.
const (
	ShareRoleViewer ShareRole = "viewer"
	ShareRoleEditor ShareRole = "editor"
)

// ProjectShare grants a user (by opaque ID) access to a project they do
// not own. Lives in the Work store; the user ID is never validated
// against the Identity store by a foreign key — cross-store references
// are opaque.
type ProjectShare struct {
	ProjectID string
	UserID    string
	Role      ShareRole
	CreatedAt time.Time
}
