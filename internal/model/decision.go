package model

import (
	"math"
	"sort"
)

// Softmax converts logits into probabilities. The max logit is subtracted
// first so large values do not overflow exp.
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	probs := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxVal))
		probs[i] = float32(e)
		sum += e
	}
	for i := range probs {
		probs[i] = float32(float64(probs[i]) / sum)
	}
	return probs
}

// Argmax returns the first index holding the largest value, or -1 for an
// empty slice.
func Argmax(values []float32) int {
	if len(values) == 0 {
		return -1
	}
	maxIdx := 0
	maxVal := values[0]
	for i, v := range values {
		if v > maxVal {
			maxVal = v
			maxIdx = i
		}
	}
	return maxIdx
}

// Decide picks the winning class from raw logits. k > 1 also fills Top with
// the k most likely labels, best first.
func Decide(logits []float32, labels []string, k int) (*Prediction, error) {
	probs := Softmax(logits)
	idx := Argmax(probs)
	if idx < 0 || idx >= len(labels) {
		return nil, &IndexError{Index: idx, Classes: len(labels)}
	}

	p := &Prediction{
		Label:      labels[idx],
		Index:      idx,
		Confidence: probs[idx],
	}
	if k > 1 {
		p.Top = topK(probs, labels, k)
	}
	return p, nil
}

func topK(probs []float32, labels []string, k int) []Score {
	n := len(probs)
	if len(labels) < n {
		n = len(labels)
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })
	if k > n {
		k = n
	}

	scores := make([]Score, k)
	for i := 0; i < k; i++ {
		scores[i] = Score{Label: labels[idx[i]], Confidence: probs[idx[i]]}
	}
	return scores
}
