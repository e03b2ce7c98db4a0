// internal/matching/assigner/assigner.go
package assigner

import (
	"sort"

	"matching-workers/internal/matching/geo"
	"matching-workers/internal/matching/vector"
	"matching-workers/internal/models"
)

// DefaultMaxDistanceKm is the distance hard filter applied when a request
// does not specify one.
const DefaultMaxDistanceKm = 5.0

// Options tunes an Assign run.
type Options struct {
	MaxDistanceKm float64 // <= 0 means DefaultMaxDistanceKm
}

// Result is the outcome of one assignment run.
type Result struct {
	Matches         []models.Match
	UnmatchedGroups []string
	// SkippedRestaurants lists catalog entries excluded for malformed
	// cuisine vectors, for the caller to log.
	SkippedRestaurants []string
}

// candidate is one restaurant eligible for one group.
type candidate struct {
	restaurant *models.Restaurant
	similarity float64
	distanceKm float64
}

// Assign matches each group profile to at most one restaurant, maximizing
// cosine similarity between the group's aggregated vector and the cuisine
// vector, under three hard filters: distance, dietary superset, and budget
// overlap. Assignment is a single sequential reduction — scarcity first, so
// groups with the fewest eligible restaurants pick before capacity runs
// out. Capacity is tracked in a map owned by this call; a restaurant at
// zero capacity drops out of later picks.
func Assign(profiles []models.GroupProfile, restaurants []models.Restaurant, opts Options) *Result {
	maxDistance := opts.MaxDistanceKm
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistanceKm
	}

	result := &Result{
		Matches:         []models.Match{},
		UnmatchedGroups: []string{},
	}

	usable := make([]*models.Restaurant, 0, len(restaurants))
	for i := range restaurants {
		r := &restaurants[i]
		if !vector.Usable(r.CuisineVector) {
			result.SkippedRestaurants = append(result.SkippedRestaurants, r.ID)
			continue
		}
		usable = append(usable, r)
	}

	candidatesByGroup := make([][]candidate, len(profiles))
	for i, profile := range profiles {
		candidatesByGroup[i] = eligibleCandidates(profile, usable, maxDistance)
	}

	// Scarcity-first ordering: fewest candidates assign first, groupId
	// breaks ties deterministically.
	order := make([]int, len(profiles))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ca, cb := len(candidatesByGroup[order[a]]), len(candidatesByGroup[order[b]])
		if ca != cb {
			return ca < cb
		}
		return profiles[order[a]].GroupID < profiles[order[b]].GroupID
	})

	remaining := make(map[string]int, len(usable))
	for _, r := range usable {
		remaining[r.ID] = r.Capacity
	}

	for _, idx := range order {
		profile := profiles[idx]
		match := pickBest(profile, candidatesByGroup[idx], remaining, maxDistance)
		if match == nil {
			result.UnmatchedGroups = append(result.UnmatchedGroups, profile.GroupID)
			continue
		}
		result.Matches = append(result.Matches, *match)
	}

	sort.Slice(result.Matches, func(i, j int) bool {
		return result.Matches[i].GroupID < result.Matches[j].GroupID
	})
	sort.Strings(result.UnmatchedGroups)
	return result
}

// eligibleCandidates applies the three hard filters and ranks what remains
// by similarity descending, restaurant ID ascending on ties.
func eligibleCandidates(profile models.GroupProfile, restaurants []*models.Restaurant, maxDistance float64) []candidate {
	var out []candidate
	for _, r := range restaurants {
		dist := geo.DistanceKm(profile.Location, r.Location)
		if dist > maxDistance {
			continue
		}
		if !supportsAll(r.DietaryOptions, profile.DietaryRestrictions) {
			continue
		}
		if !r.PriceRange.Overlaps(profile.BudgetRange) {
			continue
		}
		out = append(out, candidate{
			restaurant: r,
			similarity: vector.Cosine(profile.AggregatedVector, r.CuisineVector),
			distanceKm: dist,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].similarity != out[j].similarity {
			return out[i].similarity > out[j].similarity
		}
		return out[i].restaurant.ID < out[j].restaurant.ID
	})
	return out
}

// pickBest takes the highest-ranked candidate that still has capacity.
func pickBest(profile models.GroupProfile, candidates []candidate, remaining map[string]int, maxDistance float64) *models.Match {
	for _, c := range candidates {
		if remaining[c.restaurant.ID] <= 0 {
			continue
		}
		remaining[c.restaurant.ID]--
		return &models.Match{
			GroupID:         profile.GroupID,
			RestaurantID:    c.restaurant.ID,
			RestaurantName:  c.restaurant.Name,
			SimilarityScore: c.similarity,
			DistanceKm:      c.distanceKm,
			MatchReasons:    matchReasons(profile, c, maxDistance),
		}
	}
	return nil
}

// supportsAll reports whether options covers every required tag.
func supportsAll(options, required []string) bool {
	if len(required) == 0 {
		return true
	}
	available := make(map[string]struct{}, len(options))
	for _, o := range options {
		available[o] = struct{}{}
	}
	for _, tag := range required {
		if _, ok := available[tag]; !ok {
			return false
		}
	}
	return true
}
