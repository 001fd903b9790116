package game

import "strings"

// Similarity returns the Sørensen–Dice coefficient over rune bigrams of the
// two strings, with whitespace stripped first. The result is symmetric and
// bounded to [0,1]: identical strings score 1, strings sharing no bigrams
// score 0.
func Similarity(a, b string) float64 {
	a = stripSpace(a)
	b = stripSpace(b)
	if a == b {
		return 1
	}

	ra := []rune(a)
	rb := []rune(b)
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}

	bigrams := make(map[string]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		bigrams[string(ra[i:i+2])]++
	}

	matches := 0
	for i := 0; i < len(rb)-1; i++ {
		key := string(rb[i : i+2])
		if bigrams[key] > 0 {
			bigrams[key]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(len(ra)-1+len(rb)-1)
}

func stripSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
