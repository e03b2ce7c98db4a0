// internal/workers/matching/match-restaurants/catalog.go
package matchrestaurants

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"matching-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const catalogPageSize = 100

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Restaurant `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// searchCatalog queries the restaurant index once per group area with a
// geo_distance filter and merges the results by restaurant ID.
func (h *Handler) searchCatalog(ctx context.Context, profiles []models.GroupProfile, maxDistanceKm float64) ([]models.Restaurant, error) {
	seen := make(map[string]struct{})
	var catalog []models.Restaurant

	for _, profile := range profiles {
		hits, err := h.searchArea(ctx, profile.Location, maxDistanceKm)
		if err != nil {
			return nil, fmt.Errorf("CATALOG_FETCH_FAILED: group %s: %w", profile.GroupID, err)
		}
		for _, r := range hits {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			catalog = append(catalog, r)
		}
	}

	return catalog, nil
}

func (h *Handler) searchArea(ctx context.Context, center models.Location, maxDistanceKm float64) ([]models.Restaurant, error) {
	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{
						"geo_distance": map[string]interface{}{
							"distance": fmt.Sprintf("%.2fkm", maxDistanceKm),
							"location": map[string]interface{}{
								"lat": center.Lat,
								"lon": center.Lng,
							},
						},
					},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"_id": "asc"},
		},
	}

	body, _ := json.Marshal(queryBody)
	size := catalogPageSize

	req := esapi.SearchRequest{
		Index: []string{h.config.RestaurantIndex},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, h.es)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search returned %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]models.Restaurant, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		out = append(out, hit.Source)
	}
	return out, nil
}
