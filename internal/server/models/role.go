package models

import "time"

// Role is a named authorization label, unique by NormalizedName.
type Role struct {
	ID             string
	Name           string
	NormalizedName string
	CreatedAt      time.Time
}
