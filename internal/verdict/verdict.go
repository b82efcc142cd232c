package verdict

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Brownie44l1/wildlife-classifier/internal/model"
)

const (
	ExitOK      = 0
	ExitFailure = 1
)

type Success struct {
	AnimalType string        `json:"animalType"`
	Confidence float32       `json:"confidence"`
	Top        []model.Score `json:"top,omitempty"`
}

type Failure struct {
	Error string `json:"error"`
}

func FromPrediction(p *model.Prediction) Success {
	return Success{
		AnimalType: p.Label,
		Confidence: p.Confidence,
		Top:        p.Top,
	}
}

func Errorf(format string, args ...any) Failure {
	return Failure{Error: fmt.Sprintf(format, args...)}
}

// Write encodes v as a single line of JSON.
func Write(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write verdict: %w", err)
	}
	return nil
}
