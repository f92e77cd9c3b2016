package resolve

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/sells-group/monument-cli/internal/model"
)

// Similarity scores two texts in [0,1] after normalization. It is the
// maximum of token-set Jaccard overlap (reordering, partial names) and the
// edit-distance ratio on the full strings (misspellings).
// Texts that normalize to the same string score 1; one empty side scores 0.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0
	}

	j := jaccard(Tokens(na), Tokens(nb))
	e := editRatio(na, nb)
	if e > j {
		return e
	}
	return j
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func editRatio(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1.0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// NameSimilarity is the best similarity between the candidate name and the
// base record's name or any of its aliases.
func NameSimilarity(base model.BaseRecord, candidateName string) float64 {
	best := 0.0
	for _, n := range base.Names() {
		if s := Similarity(n, candidateName); s > best {
			best = s
		}
	}
	return best
}
