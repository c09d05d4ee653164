// Package match joins two plant registries: an exact pass over
// normalized keys followed by a fuzzy pass over the residual, never
// crossing technology categories.
package match

// LevenshteinDistance computes the edit distance between two strings.
// Single-column implementation to avoid allocating the full matrix.
func LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	len1 := len(r1)
	len2 := len(r2)

	if len1 == 0 {
		return len2
	}
	if len2 == 0 {
		return len1
	}

	column := make([]int, len1+1)
	for i := 1; i <= len1; i++ {
		column[i] = i
	}

	for x := 1; x <= len2; x++ {
		column[0] = x
		lastDiag := x - 1
		for y := 1; y <= len1; y++ {
			oldDiag := column[y]
			cost := 0
			if r1[y-1] != r2[x-1] {
				cost = 1
			}
			column[y] = min3(column[y]+1, column[y-1]+1, lastDiag+cost)
			lastDiag = oldDiag
		}
	}

	return column[len1]
}

// Ratio scores the whole-string similarity of two strings in [0,100].
func Ratio(s1, s2 string) int {
	if s1 == s2 {
		return 100
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	maxLen := len(r1)
	if len(r2) > maxLen {
		maxLen = len(r2)
	}
	if maxLen == 0 {
		return 100
	}

	distance := LevenshteinDistance(s1, s2)
	return int(float64(maxLen-distance) / float64(maxLen) * 100.0)
}

// PartialRatio scores the best-aligned overlap of two strings in
// [0,100]: the shorter string is slid over every window of its own
// length in the longer one and the best window ratio wins. A string
// fully contained in the other scores 100. Empty input scores 0 so an
// empty name can never look like a strong match.
func PartialRatio(s1, s2 string) int {
	if s1 == "" || s2 == "" {
		return 0
	}
	if s1 == s2 {
		return 100
	}

	shorter := []rune(s1)
	longer := []rune(s2)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	best := 0
	for start := 0; start+len(shorter) <= len(longer); start++ {
		window := string(longer[start : start+len(shorter)])
		score := Ratio(string(shorter), window)
		if score > best {
			best = score
		}
		if best == 100 {
			break
		}
	}

	// Windows shorter than the short string near the tail are already
	// covered: any alignment extending past the end scores no better
	// than the last full window.
	return best
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
