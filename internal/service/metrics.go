package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Orders successfully placed",
	})

	orderConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_order_conflicts_total",
		Help: "Order placements rejected because the cart changed concurrently",
	})

	cartWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_writes_total",
		Help: "Cart writes by operation and outcome",
	}, []string{"operation", "outcome"})
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
