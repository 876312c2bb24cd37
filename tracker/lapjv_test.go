package tracker

import (
	"testing"
)

// solve runs the solver over a square cost matrix and returns the row to
// column assignment after checking that colTo is the inverse of rowTo
func solve(t *testing.T, cost [][]float64) []int {

	t.Helper()

	n := len(cost)
	rowTo := make([]int, n)
	colTo := make([]int, n)

	if err := solveLAPJV(n, cost, rowTo, colTo); err != nil {
		t.Fatalf("solver failed: %v", err)
	}

	for i, j := range rowTo {
		if j < 0 || j >= n {
			t.Fatalf("row %d assigned out of range column %d", i, j)
		}

		if colTo[j] != i {
			t.Fatalf("inconsistent solution: rowTo[%d]=%d but colTo[%d]=%d",
				i, j, j, colTo[j])
		}
	}

	return rowTo
}

// assignmentCost sums the matrix entries selected by the assignment
func assignmentCost(cost [][]float64, rowTo []int) float64 {

	total := 0.0

	for i, j := range rowTo {
		total += cost[i][j]
	}

	return total
}

func TestSolveLAPJVDiagonal(t *testing.T) {

	// each predicted centroid sits closest to its own detection
	cost := [][]float64{
		{1, 40, 60},
		{40, 2, 50},
		{60, 50, 3},
	}

	rowTo := solve(t, cost)

	for i, j := range rowTo {
		if i != j {
			t.Errorf("expected row %d assigned to column %d, got %d", i, i, j)
		}
	}
}

func TestSolveLAPJVCrossover(t *testing.T) {

	// two tracks passing each other, the cheap pairings are the swap
	cost := [][]float64{
		{10, 1},
		{1, 10},
	}

	rowTo := solve(t, cost)

	if rowTo[0] != 1 || rowTo[1] != 0 {
		t.Errorf("expected crossover assignment [1 0], got %v", rowTo)
	}
}

func TestSolveLAPJVBeatsGreedy(t *testing.T) {

	// greedy matching would give row 0 its nearest detection (cost 4) and
	// strand row 1 at cost 100, the global optimum routes row 0 to its
	// second choice instead
	cost := [][]float64{
		{4, 6, 50},
		{5, 100, 100},
		{50, 50, 1},
	}

	rowTo := solve(t, cost)

	want := []int{1, 0, 2}

	for i, j := range want {
		if rowTo[i] != j {
			t.Fatalf("expected assignment %v, got %v", want, rowTo)
		}
	}

	if got := assignmentCost(cost, rowTo); got != 12 {
		t.Errorf("expected total cost 12, got %v", got)
	}
}

func TestSolveLAPJVOptimalTotal(t *testing.T) {

	cost := [][]float64{
		{9, 2, 7, 8},
		{6, 4, 3, 7},
		{5, 8, 1, 8},
		{7, 6, 9, 4},
	}

	rowTo := solve(t, cost)

	got := assignmentCost(cost, rowTo)
	want := bruteForceMinimum(cost)

	if got != want {
		t.Errorf("solver total %v, brute force minimum %v (assignment %v)",
			got, want, rowTo)
	}
}

// bruteForceMinimum enumerates every permutation to find the true minimum
// assignment cost
func bruteForceMinimum(cost [][]float64) float64 {

	n := len(cost)
	perm := make([]int, n)

	for i := range perm {
		perm[i] = i
	}

	best := largeCost

	var walk func(k int)

	walk = func(k int) {
		if k == n {
			if total := assignmentCost(cost, perm); total < best {
				best = total
			}
			return
		}

		for i := k; i < n; i++ {
			perm[k], perm[i] = perm[i], perm[k]
			walk(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}

	walk(0)

	return best
}
