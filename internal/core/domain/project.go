package domain

import "time"

// Project represents a named bot deployment bound to a parent wallet
type Project struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	ParentWalletAddress string        `json:"parent_wallet_address"`
	Status              ProjectStatus `json:"status"`
	CreatedAt           time.Time     `json:"created_at"`
}

type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusPaused   ProjectStatus = "paused"
	ProjectStatusArchived ProjectStatus = "archived"
)
