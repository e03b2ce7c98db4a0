// internal/models/restaurant.go
package models

// Restaurant is one entry of the externally supplied catalog.
// Capacity counts group seatings the restaurant can host in one run.
type Restaurant struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	CuisineVector  []float64   `json:"cuisineVector"`
	DietaryOptions []string    `json:"dietaryOptions"`
	PriceRange     BudgetRange `json:"priceRange"`
	Location       Location    `json:"location"`
	Capacity       int         `json:"capacity"`
	Rating         float64     `json:"rating"`
}
