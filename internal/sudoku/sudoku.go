// Package sudoku validates Sudoku boards and solutions. All functions are
// pure; boards are row-major with 0 meaning a blank cell.
package sudoku

type Board [][]int

const Size = 9

// ValidDimensions reports whether b is exactly 9 rows of 9 cells.
func ValidDimensions(b Board) bool {
	if len(b) != Size {
		return false
	}
	for _, row := range b {
		if len(row) != Size {
			return false
		}
	}
	return true
}

// IsValidSolution reports whether b is a fully solved board: every cell
// holds 1-9 and no value repeats within a row, column or 3x3 box.
func IsValidSolution(b Board) bool {
	if !ValidDimensions(b) {
		return false
	}

	for _, row := range b {
		for _, cell := range row {
			if cell < 1 || cell > Size {
				return false
			}
		}
	}

	for row := 0; row < Size; row++ {
		var seen [Size + 1]bool
		for col := 0; col < Size; col++ {
			n := b[row][col]
			if seen[n] {
				return false
			}
			seen[n] = true
		}
	}

	for col := 0; col < Size; col++ {
		var seen [Size + 1]bool
		for row := 0; row < Size; row++ {
			n := b[row][col]
			if seen[n] {
				return false
			}
			seen[n] = true
		}
	}

	for boxRow := 0; boxRow < 3; boxRow++ {
		for boxCol := 0; boxCol < 3; boxCol++ {
			var seen [Size + 1]bool
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					n := b[boxRow*3+i][boxCol*3+j]
					if seen[n] {
						return false
					}
					seen[n] = true
				}
			}
		}
	}

	return true
}

// VerifyReplay reports whether solution is a valid solved board that agrees
// with every non-blank cell of initial.
func VerifyReplay(initial, solution Board) bool {
	if !ValidDimensions(initial) || !IsValidSolution(solution) {
		return false
	}

	for i := 0; i < Size; i++ {
		for j := 0; j < Size; j++ {
			if initial[i][j] != 0 && initial[i][j] != solution[i][j] {
				return false
			}
		}
	}

	return true
}
