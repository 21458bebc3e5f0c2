package orders

import (
	"github.com/shutupnraveee/backend/pkg/db/models"
	"github.com/shutupnraveee/backend/pkg/enums"
)

// Filters narrows order listings and exports.
type Filters struct {
	PaymentStatus *enums.PaymentStatus
	Status        *enums.OrderStatus
	Active        *bool
	Search        string
}

// List is one page of orders plus the cursor for the next page.
type List struct {
	Orders     []models.Order
	NextCursor *string
}
