package controllers

import (
	"net/http"
	"sort"

	"github.com/shutupnraveee/backend/api/responses"
	"github.com/shutupnraveee/backend/internal/pricing"
)

type ticketTypeResponse struct {
	Name        string `json:"name"`
	PriceMinor  int64  `json:"price_minor"`
	Description string `json:"description,omitempty"`
}

// TicketCatalog serves the storefront price list from the canonical table.
func TicketCatalog(resolver *pricing.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := resolver.Table()

		catalog := make([]ticketTypeResponse, 0, len(table))
		for name, price := range table {
			catalog = append(catalog, ticketTypeResponse{
				Name:        name,
				PriceMinor:  price,
				Description: pricing.DefaultDescriptions[name],
			})
		}
		sort.Slice(catalog, func(i, j int) bool { return catalog[i].Name < catalog[j].Name })

		responses.WriteSuccess(w, catalog)
	}
}
