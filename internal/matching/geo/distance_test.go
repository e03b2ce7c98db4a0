// internal/matching/geo/distance_test.go
package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"matching-workers/internal/models"
)

func TestDistanceKm(t *testing.T) {
	sfDowntown := models.Location{Lat: 37.7749, Lng: -122.4194}
	sfMission := models.Location{Lat: 37.7599, Lng: -122.4148}
	nyc := models.Location{Lat: 40.7128, Lng: -74.0060}

	assert.Equal(t, 0.0, DistanceKm(sfDowntown, sfDowntown))

	// Downtown SF to the Mission is under 2km
	d := DistanceKm(sfDowntown, sfMission)
	assert.Greater(t, d, 1.0)
	assert.Less(t, d, 2.5)

	// SF to NYC is roughly 4130km
	cross := DistanceKm(sfDowntown, nyc)
	assert.InDelta(t, 4130, cross, 50)

	// Symmetric
	assert.InDelta(t, cross, DistanceKm(nyc, sfDowntown), 1e-9)
}

func TestCentroid(t *testing.T) {
	points := []models.Location{
		{Lat: 10, Lng: 20},
		{Lat: 20, Lng: 40},
	}
	c := Centroid(points)
	assert.Equal(t, models.Location{Lat: 15, Lng: 30}, c)

	assert.Equal(t, models.Location{}, Centroid(nil))
}
