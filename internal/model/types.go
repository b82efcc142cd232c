package model

import (
	"errors"
	"fmt"
)

var (
	ErrModelNotFound  = errors.New("model file not found")
	ErrLabelsNotFound = errors.New("labels file not found")
	ErrImageNotFound  = errors.New("image file not found")
)

// Engine runs one forward pass over a preprocessed input and returns the
// raw logits.
type Engine interface {
	Run(input []float32) ([]float32, error)
	Close()
}

type Score struct {
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
}

type Prediction struct {
	Label      string
	Index      int
	Confidence float32
	Top        []Score
}

// IndexError reports an argmax outside the label list, which happens when
// the network and the label file disagree on the number of classes.
type IndexError struct {
	Index   int
	Classes int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("Invalid prediction index %d, only have %d classes", e.Index, e.Classes)
}
