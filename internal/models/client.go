package models

import "time"

// Client represents a pharmacy customer site.
type Client struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	City       string    `db:"city" json:"city"`
	Contact    string    `db:"contact" json:"contact"`
	ClientCode string    `db:"client_code" json:"client_code"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ClientFilter captures filtering options for listing clients.
type ClientFilter struct {
	Search    string
	City      string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
