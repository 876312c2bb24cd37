package tracker

import (
	"errors"
)

// largeCost stands in for infinity when seeding column prices
const largeCost = 1000000.0

// solveLAPJV solves the square linear assignment problem over a dense cost
// matrix with the Jonker-Volgenant algorithm.  On return rowTo[i] holds the
// column assigned to row i and colTo[j] the row assigned to column j.  The
// gated track to detection association embeds its rectangular, cost limited
// problem into this square form, see execLapjv.
func solveLAPJV(n int, cost [][]float64, rowTo, colTo []int) error {

	free := make([]int, n)
	prices := make([]float64, n)

	nFree := columnReduction(n, cost, free, rowTo, colTo, prices)

	for i := 0; nFree > 0 && i < 2; i++ {
		nFree = augmentingRowReduction(n, cost, nFree, free, rowTo, colTo, prices)
	}

	if nFree > 0 {
		return augmentFree(n, cost, nFree, free, rowTo, colTo, prices)
	}

	return nil
}

// columnReduction assigns every column to its cheapest row and transfers the
// reduction into the column prices.  Rows it could not uniquely assign are
// collected on the free list and their count returned.
func columnReduction(n int, cost [][]float64, free, rowTo, colTo []int,
	prices []float64) int {

	unique := make([]bool, n)

	for i := 0; i < n; i++ {
		rowTo[i] = -1
		prices[i] = largeCost
		colTo[i] = 0
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if c := cost[i][j]; c < prices[j] {
				prices[j] = c
				colTo[j] = i
			}
		}
	}

	for i := range unique {
		unique[i] = true
	}

	for j := n - 1; j >= 0; j-- {
		i := colTo[j]

		if rowTo[i] < 0 {
			rowTo[i] = j
		} else {
			unique[i] = false
			colTo[j] = -1
		}
	}

	nFree := 0

	for i := 0; i < n; i++ {

		if rowTo[i] < 0 {
			free[nFree] = i
			nFree++
			continue
		}

		if !unique[i] {
			continue
		}

		// the row won its column outright, lower that column's price by the
		// slack to the row's second best alternative
		j := rowTo[i]
		minVal := largeCost

		for j2 := 0; j2 < n; j2++ {
			if j2 == j {
				continue
			}

			if c := cost[i][j2] - prices[j2]; c < minVal {
				minVal = c
			}
		}

		prices[j] -= minVal
	}

	return nFree
}

// augmentingRowReduction reassigns each free row to its cheapest column,
// bumping any previous owner back onto the free list.  The iteration bound
// breaks price adjustment cycles that would otherwise not terminate.
func augmentingRowReduction(n int, cost [][]float64, nFree int, free,
	rowTo, colTo []int, prices []float64) int {

	current := 0
	newFree := 0
	iters := 0

	for current < nFree {

		iters++
		row := free[current]
		current++

		// find the cheapest and second cheapest reduced cost for this row
		j1 := 0
		v1 := cost[row][0] - prices[0]
		j2 := -1
		v2 := largeCost

		for j := 1; j < n; j++ {
			c := cost[row][j] - prices[j]

			if c < v2 {
				if c >= v1 {
					v2 = c
					j2 = j
				} else {
					v2 = v1
					v1 = c
					j2 = j1
					j1 = j
				}
			}
		}

		owner := colTo[j1]
		reduced := prices[j1] - (v2 - v1)
		lowers := reduced < prices[j1]

		if iters < current*n {
			if lowers {
				prices[j1] = reduced
			} else if owner >= 0 && j2 >= 0 {
				j1 = j2
				owner = colTo[j2]
			}

			if owner >= 0 {
				if lowers {
					current--
					free[current] = owner
				} else {
					free[newFree] = owner
					newFree++
				}
			}
		} else if owner >= 0 {
			free[newFree] = owner
			newFree++
		}

		rowTo[row] = j1
		colTo[j1] = row
	}

	return newFree
}

// collectMinColumns moves the columns at the minimum path length into the
// scan region starting at lo and returns the region's new end
func collectMinColumns(n, lo int, d []float64, cols []int) int {

	hi := lo + 1
	mind := d[cols[lo]]

	for k := hi; k < n; k++ {

		j := cols[k]

		if d[j] > mind {
			continue
		}

		if d[j] < mind {
			hi = lo
			mind = d[j]
		}

		cols[k] = cols[hi]
		cols[hi] = j
		hi++
	}

	return hi
}

// scanColumns relaxes the unvisited columns through the columns on the scan
// list, returning an unassigned column as soon as one becomes reachable at
// the current minimum, or -1 when the scan list is exhausted
func scanColumns(n int, cost [][]float64, lo, hi *int, d []float64,
	cols, pred, colTo []int, prices []float64) int {

	for *lo != *hi {

		j := cols[*lo]
		*lo++
		i := colTo[j]
		mind := d[j]
		h := cost[i][j] - prices[j] - mind

		for k := *hi; k < n; k++ {
			j = cols[k]
			reduced := cost[i][j] - prices[j] - h

			if reduced >= d[j] {
				continue
			}

			d[j] = reduced
			pred[j] = i

			if reduced == mind {
				if colTo[j] < 0 {
					return j
				}

				cols[k] = cols[*hi]
				cols[*hi] = j
				(*hi)++
			}
		}
	}

	return -1
}

// shortestPath runs one modified Dijkstra iteration from a free row to the
// nearest unassigned column, raising the prices of the columns that became
// final along the way
func shortestPath(n int, cost [][]float64, startRow int, colTo []int,
	prices []float64, pred []int) int {

	lo := 0
	hi := 0
	finalJ := -1
	nReady := 0
	cols := make([]int, n)
	d := make([]float64, n)

	for j := 0; j < n; j++ {
		cols[j] = j
		pred[j] = startRow
		d[j] = cost[startRow][j] - prices[j]
	}

	for finalJ == -1 {

		// scan list empty, pull in the next set of minimum columns
		if lo == hi {
			nReady = lo
			hi = collectMinColumns(n, lo, d, cols)

			for k := lo; k < hi; k++ {
				if j := cols[k]; colTo[j] < 0 {
					finalJ = j
				}
			}
		}

		if finalJ == -1 {
			finalJ = scanColumns(n, cost, &lo, &hi, d, cols, pred, colTo, prices)
		}
	}

	mind := d[cols[lo]]

	for k := 0; k < nReady; k++ {
		j := cols[k]
		prices[j] += d[j] - mind
	}

	return finalJ
}

// augmentFree assigns the remaining free rows by augmenting along shortest
// alternating paths
func augmentFree(n int, cost [][]float64, nFree int, free,
	rowTo, colTo []int, prices []float64) error {

	pred := make([]int, n)

	for _, row := range free[:nFree] {

		i := -1
		steps := 0

		j := shortestPath(n, cost, row, colTo, prices, pred)

		if j < 0 || j >= n {
			return errors.New("augmenting path ended outside the cost matrix")
		}

		for i != row {

			i = pred[j]
			colTo[j] = i
			j, rowTo[i] = rowTo[i], j
			steps++

			if steps >= n {
				return errors.New("augmenting path did not terminate")
			}
		}
	}

	return nil
}
