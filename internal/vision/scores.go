package vision

import (
	"fmt"
	"sort"
)

// Prediction is one class and its score.
type Prediction struct {
	Index int
	Label string
	Score float32
}

// String formats the prediction as "label (87.5%)".
func (p Prediction) String() string {
	return fmt.Sprintf("%s (%.1f%%)", p.Label, p.Score*100)
}

// ArgMax returns the index and value of the largest score. Only a strictly
// greater score replaces the current best, so ties go to the lowest index.
// It returns -1 for an empty slice.
func ArgMax(scores []float32) (int, float32) {
	if len(scores) == 0 {
		return -1, 0
	}
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best, scores[best]
}

// TopK returns the k best predictions, highest score first. Equal scores
// keep index order.
func TopK(scores []float32, labels []string, k int) []Prediction {
	if k > len(scores) {
		k = len(scores)
	}
	if k <= 0 {
		return nil
	}

	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	top := make([]Prediction, k)
	for i := range top {
		top[i] = Prediction{
			Index: idx[i],
			Label: labelAt(labels, idx[i]),
			Score: scores[idx[i]],
		}
	}
	return top
}

func labelAt(labels []string, i int) string {
	if i >= 0 && i < len(labels) {
		return labels[i]
	}
	return fmt.Sprintf("class %d", i)
}
