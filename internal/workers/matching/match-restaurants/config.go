// internal/workers/matching/match-restaurants/config.go
package matchrestaurants

import "time"

type Config struct {
	RestaurantIndex string
	MaxDistanceKm   float64
	PersistMatches  bool
	Timeout         time.Duration
}

func LoadConfig() *Config {
	return &Config{
		RestaurantIndex: "restaurants",
		MaxDistanceKm:   5.0,
		Timeout:         30 * time.Second,
	}
}
