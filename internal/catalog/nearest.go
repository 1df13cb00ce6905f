package catalog

import (
	"errors"
	"math"
)

// ErrNoActiveStores is returned by Nearest when the catalog has no active stores.
var ErrNoActiveStores = errors.New("catalog: no active stores")

const earthRadiusKm = 6371

// Distance returns the great-circle distance in kilometres between two
// coordinate pairs given in degrees (haversine formula).
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// Nearest returns the store closest to the given coordinates and its
// distance in kilometres. Ties keep the first store in catalog order.
func Nearest(lat, lng float64, stores []Store) (*Store, float64, error) {
	if len(stores) == 0 {
		return nil, 0, ErrNoActiveStores
	}
	best := 0
	bestDist := Distance(lat, lng, stores[0].Lat, stores[0].Lng)
	for i := 1; i < len(stores); i++ {
		d := Distance(lat, lng, stores[i].Lat, stores[i].Lng)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return &stores[best], bestDist, nil
}
