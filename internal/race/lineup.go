package race

import (
	"math/rand/v2"
	"slices"
)

// MaxThreeMotoRoster is the largest roster that still races a third moto
const MaxThreeMotoRoster = 8

// MotosPerBatch returns how many qualification heats a roster of n riders races
func MotosPerBatch(n int) int {
	if n <= MaxThreeMotoRoster {
		return 3
	}
	return 2
}

// MinBatchRoster is the smallest roster a qualification batch may have
const MinBatchRoster = 4

// Batches splits riders into the fewest consecutive chunks of at most size
// riders, balanced so chunk lengths differ by at most one. Order inside each
// chunk follows the input order.
func Batches(riderIDs []int, size int) [][]int {
	if len(riderIDs) == 0 || size < 1 {
		return nil
	}
	n := len(riderIDs)
	k := (n + size - 1) / size
	out := make([][]int, 0, k)
	start := 0
	for i := range k {
		length := n / k
		if i < n%k {
			length++
		}
		out = append(out, riderIDs[start:start+length])
		start += length
	}
	return out
}

// Lineup returns the gate order for a moto given the roster in arrival order.
// The result lists rider IDs by gate: index 0 starts at gate 1.
//
//	moto 1: roster order
//	moto 2: roster reversed
//	moto 3: random permutation drawn from rng
//
// Any other moto number (elimination heats) keeps roster order.
func Lineup(roster []int, moto int, rng *rand.Rand) []int {
	out := slices.Clone(roster)
	switch moto {
	case 2:
		slices.Reverse(out)
	case 3:
		if rng == nil {
			rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	return out
}

// GateMap converts a lineup into rider -> gate (1-based)
func GateMap(lineup []int) map[int]int {
	gates := make(map[int]int, len(lineup))
	for i, riderID := range lineup {
		gates[riderID] = i + 1
	}
	return gates
}

// IsPermutation reports whether gates hold exactly the values 1..len(gates)
func IsPermutation(gates map[int]int) bool {
	seen := make([]bool, len(gates)+1)
	for _, g := range gates {
		if g < 1 || g > len(gates) || seen[g] {
			return false
		}
		seen[g] = true
	}
	return true
}
