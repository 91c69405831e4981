package engine

// Similarity returns the Ratcliff/Obershelp ratio between two strings, in
// [0,1] with 1.0 for identical input. Empty input scores 0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	matched := matchedChars(a, b)
	return 2 * float64(matched) / float64(len(a)+len(b))
}

// matchedChars sums the longest common substring and recurses on the
// unmatched pieces to its left and right.
func matchedChars(a, b string) int {
	i, j, k := longestCommonSubstring(a, b)
	if k == 0 {
		return 0
	}
	return k + matchedChars(a[:i], b[:j]) + matchedChars(a[i+k:], b[j+k:])
}

func longestCommonSubstring(a, b string) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	// prev[j] holds the run length ending at a[i-1], b[j-1]
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > size {
					size = cur[j]
					ai = i - size
					bi = j - size
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return ai, bi, size
}
