// internal/workers/matching/normalize-preferences/config.go
package normalizepreferences

import "time"

type Config struct {
	DefaultWeights []float64
	CacheTTL       time.Duration
	Timeout        time.Duration
}

func LoadConfig() *Config {
	return &Config{
		DefaultWeights: []float64{0.5, 0.3, 0.2},
		CacheTTL:       1 * time.Hour,
		Timeout:        30 * time.Second,
	}
}
