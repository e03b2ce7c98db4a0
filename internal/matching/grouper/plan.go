// internal/matching/grouper/plan.go
package grouper

// planSizes decides the group sizes for n participants. Fives are used only
// to absorb the remainder of dividing by four, which keeps group count
// variance minimal and — for any n >= 12 — always yields an exact
// partition, so nobody is left out for arithmetic reasons:
//
//	n mod 4 == 0 -> all fours
//	n mod 4 == r -> r fives, rest fours (n >= 12 guarantees enough fours
//	                to upgrade)
//
// Fives come first so they are seeded from the strongest pairs.
func planSizes(n int) []int {
	fives := n % MinGroupSize
	fours := (n - fives*MaxGroupSize) / MinGroupSize

	sizes := make([]int, 0, fives+fours)
	for i := 0; i < fives; i++ {
		sizes = append(sizes, MaxGroupSize)
	}
	for i := 0; i < fours; i++ {
		sizes = append(sizes, MinGroupSize)
	}
	return sizes
}
