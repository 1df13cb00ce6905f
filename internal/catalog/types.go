package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Pricing categories for services.
const (
	CategoryTiered = "TIERED"
	CategoryFlat   = "FLAT"
)

// Service is a wash/detailing offering managed from the admin console.
// Tiered services carry per-vehicle-size prices; flat services a single one.
type Service struct {
	ID          uuid.UUID
	Name        string
	Category    string
	PriceSmall  *float64
	PriceMedium *float64
	PriceLarge  *float64
	PriceFlat   *float64
	Active      bool
	CreatedAt   time.Time
}

// Store is a physical car-wash location.
type Store struct {
	ID        uuid.UUID
	Name      string
	Address   string
	Lat       float64
	Lng       float64
	Active    bool
	CreatedAt time.Time
}
