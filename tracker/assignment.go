package tracker

// linearAssignment solves the track/detection association problem for one
// cost matrix using the LAPJV solver.  Gate is the maximum acceptable cost,
// any pairing at or above it is left unmatched.
func linearAssignment(costMatrix [][]float64, nRows, nCols int,
	gate float64) (matches [][2]int, unmatchedRows, unmatchedCols []int, err error) {

	if len(costMatrix) == 0 {
		for i := 0; i < nRows; i++ {
			unmatchedRows = append(unmatchedRows, i)
		}
		for i := 0; i < nCols; i++ {
			unmatchedCols = append(unmatchedCols, i)
		}
		return
	}

	rowsol, colsol, err := execLapjv(costMatrix, gate)

	if err != nil {
		return nil, nil, nil, err
	}

	for i, sol := range rowsol {
		if sol >= 0 {
			matches = append(matches, [2]int{i, sol})
		} else {
			unmatchedRows = append(unmatchedRows, i)
		}
	}

	for i, sol := range colsol {
		if sol < 0 {
			unmatchedCols = append(unmatchedCols, i)
		}
	}

	return
}

// execLapjv prepares a possibly rectangular, cost limited problem for the
// square LAPJV solver.  The matrix is embedded in a (rows+cols) square
// matrix whose padding cells cost costLimit/2, which makes any real pairing
// costing costLimit or more lose to its padding alternative and therefore
// come back unassigned.
func execLapjv(cost [][]float64, costLimit float64) (rowsol, colsol []int, err error) {

	nRows := len(cost)
	nCols := len(cost[0])
	rowsol = make([]int, nRows)
	colsol = make([]int, nCols)

	n := nRows + nCols

	costExtended := make([][]float64, n)

	for i := range costExtended {
		costExtended[i] = make([]float64, n)

		for j := range costExtended[i] {
			costExtended[i][j] = costLimit / 2.0
		}
	}

	// corner block joining padding rows to padding columns is free
	for i := nRows; i < n; i++ {
		for j := nCols; j < n; j++ {
			costExtended[i][j] = 0
		}
	}

	for i := 0; i < nRows; i++ {
		copy(costExtended[i][:nCols], cost[i])
	}

	rowTo := make([]int, n)
	colTo := make([]int, n)

	if err := solveLAPJV(n, costExtended, rowTo, colTo); err != nil {
		return nil, nil, err
	}

	// map padding assignments back to unassigned
	for i := 0; i < n; i++ {
		if rowTo[i] >= nCols {
			rowTo[i] = -1
		}
		if colTo[i] >= nRows {
			colTo[i] = -1
		}
	}

	copy(rowsol, rowTo[:nRows])
	copy(colsol, colTo[:nCols])

	return rowsol, colsol, nil
}
