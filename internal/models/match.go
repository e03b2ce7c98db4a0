// internal/models/match.go
package models

// Match is the terminal pipeline output: one group assigned to one
// restaurant, with the similarity score and the reasons shown to users.
type Match struct {
	GroupID         string   `json:"groupId"`
	RestaurantID    string   `json:"restaurantId"`
	RestaurantName  string   `json:"restaurantName"`
	SimilarityScore float64  `json:"similarityScore"`
	DistanceKm      float64  `json:"distanceKm"`
	MatchReasons    []string `json:"matchReasons"`
}
