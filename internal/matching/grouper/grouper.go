// internal/matching/grouper/grouper.go
package grouper

import (
	"errors"
	"fmt"
	"sort"

	"matching-workers/internal/matching/vector"
	"matching-workers/internal/models"
)

const (
	// MinRoster is the hard minimum roster size; smaller requests are
	// rejected outright rather than partially matched.
	MinRoster = 12

	MinGroupSize = 4
	MaxGroupSize = 5
)

var ErrRosterTooSmall = errors.New("ROSTER_TOO_SMALL")

// IDGenerator mints group IDs. seq starts at 1 and follows creation order.
type IDGenerator func(seq int) string

// SequentialIDs is the default generator; deterministic so that identical
// rosters reproduce identical output.
func SequentialIDs(seq int) string {
	return fmt.Sprintf("group-%03d", seq)
}

// Options tunes a Partition run.
type Options struct {
	IDGen IDGenerator
}

// Result is one complete partition of a roster.
type Result struct {
	Groups         []models.Group
	UnmatchedUsers []string
}

// Partition splits the roster into compatibility groups of 4 or 5,
// maximizing average intra-group cosine similarity. Participants whose
// preference vectors are unusable (wrong dimension or zero norm) are
// excluded and reported in UnmatchedUsers. Ties break by ascending
// participant ID throughout, so equal inputs give equal outputs.
func Partition(roster []models.Participant, opts Options) (*Result, error) {
	if len(roster) < MinRoster {
		return nil, fmt.Errorf("%w: need at least %d participants, got %d",
			ErrRosterTooSmall, MinRoster, len(roster))
	}
	if err := checkUniqueIDs(roster); err != nil {
		return nil, err
	}

	idGen := opts.IDGen
	if idGen == nil {
		idGen = SequentialIDs
	}

	valid, unmatched := splitUsable(roster)

	// Not enough usable vectors to form a single legal partition: the
	// constraint is unsatisfiable for everyone, which is an outcome, not
	// an error.
	if len(valid) < MinRoster {
		for _, p := range valid {
			unmatched = append(unmatched, p.ID)
		}
		sort.Strings(unmatched)
		return &Result{Groups: []models.Group{}, UnmatchedUsers: unmatched}, nil
	}

	sort.Slice(valid, func(i, j int) bool { return valid[i].ID < valid[j].ID })

	sim := pairwiseSimilarity(valid)
	sizes := planSizes(len(valid))

	assigned := make([]bool, len(valid))
	groups := make([]models.Group, 0, len(sizes))

	for seq, size := range sizes {
		members := seedPair(sim, assigned)
		for len(members) < size {
			members = append(members, bestAddition(sim, assigned, members))
		}

		ids := make([]string, len(members))
		for i, idx := range members {
			ids[i] = valid[idx].ID
		}
		sort.Strings(ids)

		groups = append(groups, models.Group{
			GroupID:            idGen(seq + 1),
			MemberIDs:          ids,
			CompatibilityScore: clamp01(averagePairwise(sim, members)),
		})
	}

	sort.Strings(unmatched)
	return &Result{Groups: groups, UnmatchedUsers: unmatched}, nil
}

func checkUniqueIDs(roster []models.Participant) error {
	seen := make(map[string]struct{}, len(roster))
	for _, p := range roster {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate participant id %q in roster", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

func splitUsable(roster []models.Participant) (valid []models.Participant, unmatched []string) {
	for _, p := range roster {
		if vector.Usable(p.PreferenceVector) {
			valid = append(valid, p)
		} else {
			unmatched = append(unmatched, p.ID)
		}
	}
	return valid, unmatched
}

func pairwiseSimilarity(participants []models.Participant) [][]float64 {
	n := len(participants)
	sim := make([][]float64, n)
	for i := range sim {
		sim[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := vector.Cosine(participants[i].PreferenceVector, participants[j].PreferenceVector)
			sim[i][j] = s
			sim[j][i] = s
		}
	}
	return sim
}

// seedPair picks the highest-similarity unassigned pair and marks both
// assigned. Indexing order (ascending IDs) resolves ties.
func seedPair(sim [][]float64, assigned []bool) []int {
	bestI, bestJ := -1, -1
	best := 0.0
	for i := range assigned {
		if assigned[i] {
			continue
		}
		for j := i + 1; j < len(assigned); j++ {
			if assigned[j] {
				continue
			}
			if bestI == -1 || sim[i][j] > best {
				best = sim[i][j]
				bestI, bestJ = i, j
			}
		}
	}
	assigned[bestI] = true
	assigned[bestJ] = true
	return []int{bestI, bestJ}
}

// bestAddition picks the unassigned participant with the highest average
// similarity to the current members and marks it assigned.
func bestAddition(sim [][]float64, assigned []bool, members []int) int {
	bestIdx := -1
	best := 0.0
	for c := range assigned {
		if assigned[c] {
			continue
		}
		total := 0.0
		for _, m := range members {
			total += sim[c][m]
		}
		avg := total / float64(len(members))
		if bestIdx == -1 || avg > best {
			best = avg
			bestIdx = c
		}
	}
	assigned[bestIdx] = true
	return bestIdx
}

func averagePairwise(sim [][]float64, members []int) float64 {
	if len(members) < 2 {
		return 0
	}
	total := 0.0
	pairs := 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			total += sim[members[i]][members[j]]
			pairs++
		}
	}
	return total / float64(pairs)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
