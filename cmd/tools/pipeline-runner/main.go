// cmd/tools/pipeline-runner/main.go
//
// Runs the full matching pipeline in-process over a JSON fixture, without a
// broker or any backing store. Useful for tuning weights and distance
// thresholds against recorded rosters.
//
// Usage:
//
//	pipeline-runner -input fixtures/roster.json [-max-distance 5.0]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"matching-workers/internal/matching/aggregator"
	"matching-workers/internal/matching/assigner"
	"matching-workers/internal/matching/grouper"
	"matching-workers/internal/matching/normalizer"
	"matching-workers/internal/models"
)

// Fixture is the runner's input document. Participants may carry raw
// embeddings instead of a finished preference vector; those are normalized
// first.
type Fixture struct {
	Participants  []FixtureParticipant `json:"participants"`
	Restaurants   []models.Restaurant  `json:"restaurants"`
	Weights       []float64            `json:"weights,omitempty"`
	MaxDistanceKm float64              `json:"maxDistanceKm,omitempty"`
}

type FixtureParticipant struct {
	models.Participant
	Embeddings [][]float64 `json:"embeddings,omitempty"`
}

// RunReport is the runner's output document.
type RunReport struct {
	Groups          []models.Group        `json:"groups"`
	UnmatchedUsers  []string              `json:"unmatchedUsers"`
	GroupProfiles   []models.GroupProfile `json:"groupProfiles"`
	Matches         []models.Match        `json:"matches"`
	UnmatchedGroups []string              `json:"unmatchedGroups"`
}

func main() {
	inputPath := flag.String("input", "", "Path to the fixture JSON file")
	maxDistance := flag.Float64("max-distance", 0, "Override the distance hard filter in km")
	pretty := flag.Bool("pretty", true, "Indent the output JSON")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -input is required")
		flag.Usage()
		os.Exit(1)
	}

	raw, err := os.ReadFile(*inputPath)
	if err != nil {
		fatalf("read fixture: %v", err)
	}

	var fixture Fixture
	if err := json.Unmarshal(raw, &fixture); err != nil {
		fatalf("parse fixture: %v", err)
	}

	report, err := run(&fixture, *maxDistance)
	if err != nil {
		fatalf("pipeline failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(report); err != nil {
		fatalf("encode report: %v", err)
	}
}

func run(fixture *Fixture, maxDistance float64) (*RunReport, error) {
	// Stage 1: normalize any participant carrying raw embeddings.
	roster := make([]models.Participant, 0, len(fixture.Participants))
	for _, fp := range fixture.Participants {
		p := fp.Participant
		if len(fp.Embeddings) > 0 {
			result, err := normalizer.Normalize(normalizer.Request{
				UserID:     p.ID,
				Embeddings: fp.Embeddings,
				Weights:    fixture.Weights,
			})
			if err != nil {
				return nil, fmt.Errorf("normalize %s: %w", p.ID, err)
			}
			p.PreferenceVector = result.PreferenceVector
		}
		roster = append(roster, p)
	}

	// Stage 2: partition into groups.
	partition, err := grouper.Partition(roster, grouper.Options{})
	if err != nil {
		return nil, err
	}

	// Stage 3: aggregate each group.
	byID := make(map[string]models.Participant, len(roster))
	for _, p := range roster {
		byID[p.ID] = p
	}

	profiles := make([]models.GroupProfile, 0, len(partition.Groups))
	for _, g := range partition.Groups {
		members := make([]models.Participant, 0, g.Size())
		for _, id := range g.MemberIDs {
			members = append(members, byID[id])
		}
		profile, err := aggregator.BuildProfile(g.GroupID, members)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}

	// Stage 4: assign restaurants.
	if maxDistance <= 0 {
		maxDistance = fixture.MaxDistanceKm
	}
	assignment := assigner.Assign(profiles, fixture.Restaurants, assigner.Options{MaxDistanceKm: maxDistance})

	return &RunReport{
		Groups:          partition.Groups,
		UnmatchedUsers:  partition.UnmatchedUsers,
		GroupProfiles:   profiles,
		Matches:         assignment.Matches,
		UnmatchedGroups: assignment.UnmatchedGroups,
	}, nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
