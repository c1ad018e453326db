package domain

import "time"

// Product is a catalog entry. Prices are mutable; orders snapshot them.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Price       Money     `json:"price"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
