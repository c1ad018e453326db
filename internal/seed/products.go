// Package seed holds the initial catalog loaded by the dev seed endpoint.
package seed

import (
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
)

type entry struct {
	title       string
	price       domain.Money
	description string
	image       string
}

var initialProducts = []entry{
	{
		title:       "Midnight Essential Hoodie",
		price:       4999,
		description: "Fleece-lined black hoodie with a relaxed fit, perfect for everyday wear.",
		image:       "https://images.unsplash.com/photo-1556905055-8f358a7a47b2?auto=format&fit=crop&w=800&q=80",
	},
	{
		title:       "Everyday Slim Jeans",
		price:       5999,
		description: "Slim-fit blue denim jeans with a bit of stretch for all-day comfort.",
		image:       "https://images.unsplash.com/photo-1542272617-08f086302436?auto=format&fit=crop&w=800&q=80",
	},
	{
		title:       "Minimalist Sneakers",
		price:       7999,
		description: "Low-profile sneakers with a clean silhouette and cushioned sole.",
		image:       "https://images.unsplash.com/photo-1549298916-b41d501d3772?auto=format&fit=crop&w=800&q=80",
	},
	{
		title:       "Wireless Noise-Cancelling Headphones",
		price:       14999,
		description: "Over-ear wireless headphones with active noise cancelling and 30-hour battery life.",
		image:       "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?auto=format&fit=crop&w=800&q=80",
	},
	{
		title:       "Smart Fitness Watch",
		price:       12999,
		description: "Track your workouts, heart rate, and notifications with a sleek AMOLED display.",
		image:       "https://images.unsplash.com/photo-1523275335684-37898b6baf30?auto=format&fit=crop&w=800&q=80",
	},
	{
		title:       "Mechanical Keyboard",
		price:       10999,
		description: "Compact mechanical keyboard with tactile switches and customizable backlighting.",
		image:       "https://images.unsplash.com/photo-1587829741301-dc798b91a45e?auto=format&fit=crop&w=800&q=80",
	},
	{
		title:       "Leather Desk Mat",
		price:       3999,
		description: "Full-grain leather desk mat that protects your workspace and improves mouse glide.",
		image:       "https://images.unsplash.com/photo-1527864550417-7fd91fc51a46?auto=format&fit=crop&w=800&q=80",
	},
	{
		title:       "Studio Monitor Speakers",
		price:       19999,
		description: "Pair of compact studio monitors delivering balanced, detailed sound for your setup.",
		image:       "https://images.unsplash.com/photo-1545454675-3531b543be5d?auto=format&fit=crop&w=800&q=80",
	},
}

// Products returns the initial catalog with fresh ids. Creation times are
// spaced a millisecond apart from now so listings keep this order on every
// store.
func Products(now time.Time) []domain.Product {
	now = now.UTC().Truncate(time.Millisecond)
	out := make([]domain.Product, len(initialProducts))
	for i, e := range initialProducts {
		at := now.Add(time.Duration(i) * time.Millisecond)
		out[i] = domain.Product{
			ID:          uuid.NewString(),
			Title:       e.title,
			Price:       e.price,
			Description: e.description,
			Image:       e.image,
			CreatedAt:   at,
			UpdatedAt:   at,
		}
	}
	return out
}
