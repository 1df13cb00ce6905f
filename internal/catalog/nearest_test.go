package catalog

import (
	"errors"
	"math"
	"testing"
)

func TestDistanceSymmetry(t *testing.T) {
	// Taipei Main Station <-> Taichung Station
	lat1, lng1 := 25.0478, 121.5170
	lat2, lng2 := 24.1369, 120.6869

	ab := Distance(lat1, lng1, lat2, lng2)
	ba := Distance(lat2, lng2, lat1, lng1)

	if math.Abs(ab-ba) > 1e-9 {
		t.Fatalf("distance not symmetric: %v vs %v", ab, ba)
	}
	// Roughly 130 km apart.
	if ab < 120 || ab > 145 {
		t.Fatalf("implausible Taipei-Taichung distance: %v km", ab)
	}
}

func TestDistanceZero(t *testing.T) {
	if d := Distance(25.0, 121.5, 25.0, 121.5); d != 0 {
		t.Fatalf("distance to self = %v, want 0", d)
	}
}

func TestNearestPicksClosest(t *testing.T) {
	stores := []Store{
		{Name: "Kaohsiung", Lat: 22.6273, Lng: 120.3014},
		{Name: "Taipei", Lat: 25.0330, Lng: 121.5654},
		{Name: "Taichung", Lat: 24.1477, Lng: 120.6736},
	}

	// User near Taipei 101.
	store, dist, err := Nearest(25.0340, 121.5645, stores)
	if err != nil {
		t.Fatalf("Nearest returned error: %v", err)
	}
	if store.Name != "Taipei" {
		t.Fatalf("nearest = %q, want Taipei", store.Name)
	}
	if dist <= 0 || dist > 1 {
		t.Fatalf("distance = %v km, want small positive", dist)
	}
}

func TestNearestTieKeepsCatalogOrder(t *testing.T) {
	stores := []Store{
		{Name: "First", Lat: 25.0, Lng: 121.5},
		{Name: "Duplicate", Lat: 25.0, Lng: 121.5},
	}
	store, _, err := Nearest(24.9, 121.4, stores)
	if err != nil {
		t.Fatalf("Nearest returned error: %v", err)
	}
	if store.Name != "First" {
		t.Fatalf("tie broke to %q, want First", store.Name)
	}
}

func TestNearestEmptyCatalog(t *testing.T) {
	_, _, err := Nearest(25.0, 121.5, nil)
	if !errors.Is(err, ErrNoActiveStores) {
		t.Fatalf("err = %v, want ErrNoActiveStores", err)
	}
}
