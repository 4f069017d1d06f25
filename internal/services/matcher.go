package services

// LCSLength returns the length of the longest common subsequence of a and b.
// This is the similarity score used for fuzzy item lookup: it counts
// characters shared in order, not edit distance, so two strings of very
// different lengths can still score highly.
func LCSLength(a, b string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return lcsTable(a, b)[len(a)][len(b)]
}

// LCS returns one longest common subsequence of a and b, reconstructed by
// walking the DP table back from the corner.
func LCS(a, b string) string {
	if len(a) == 0 || len(b) == 0 {
		return ""
	}
	table := lcsTable(a, b)

	out := make([]byte, table[len(a)][len(b)])
	i, j := len(a), len(b)
	for i > 0 && j > 0 {
		switch {
		case a[i-1] == b[j-1]:
			out[table[i][j]-1] = a[i-1]
			i--
			j--
		case table[i-1][j] >= table[i][j-1]:
			i--
		default:
			j--
		}
	}
	return string(out)
}

func lcsTable(a, b string) [][]int {
	table := make([][]int, len(a)+1)
	for i := range table {
		table[i] = make([]int, len(b)+1)
	}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else if table[i-1][j] >= table[i][j-1] {
				table[i][j] = table[i-1][j]
			} else {
				table[i][j] = table[i][j-1]
			}
		}
	}
	return table
}
