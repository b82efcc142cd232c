package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Brownie44l1/wildlife-classifier/internal/preprocess"
	"github.com/sirupsen/logrus"
)

type EngineFactory func(EngineOptions) (Engine, error)

type Options struct {
	ModelPath         string
	LabelsPath        string
	SharedLibraryPath string
	InputName         string
	OutputName        string
	Transform         preprocess.Transform
	TopK              int

	// NewEngine defaults to the ONNX Runtime engine.
	NewEngine EngineFactory
	Logger    logrus.FieldLogger
}

type Classifier struct {
	Labels []string

	engine    Engine
	transform preprocess.Transform
	topK      int
	log       logrus.FieldLogger
}

// NewClassifier checks that both artifacts exist, loads the labels and
// builds an engine sized to them.
func NewClassifier(opts Options) (*Classifier, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	if err := mustExist(opts.ModelPath, ErrModelNotFound); err != nil {
		return nil, err
	}
	if err := mustExist(opts.LabelsPath, ErrLabelsNotFound); err != nil {
		return nil, err
	}

	labels, err := LoadLabels(opts.LabelsPath)
	if err != nil {
		return nil, err
	}
	log.WithField("count", len(labels)).Infof("Loaded %d class names", len(labels))

	newEngine := opts.NewEngine
	if newEngine == nil {
		newEngine = NewEngine
	}

	log.WithField("model", opts.ModelPath).Info("Loading model")
	engine, err := newEngine(EngineOptions{
		ModelPath:         opts.ModelPath,
		SharedLibraryPath: opts.SharedLibraryPath,
		InputName:         opts.InputName,
		OutputName:        opts.OutputName,
		InputShape:        opts.Transform.Shape(),
		NumClasses:        len(labels),
	})
	if err != nil {
		return nil, err
	}
	log.Info("Model loaded successfully")

	return &Classifier{
		Labels:    labels,
		engine:    engine,
		transform: opts.Transform,
		topK:      opts.TopK,
		log:       log,
	}, nil
}

// Classify runs the full pipeline on one image file.
func (c *Classifier) Classify(imagePath string) (*Prediction, error) {
	if err := mustExist(imagePath, ErrImageNotFound); err != nil {
		return nil, err
	}

	c.log.WithField("path", imagePath).Debug("Opening image")
	img, err := preprocess.Load(imagePath)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	c.log.WithFields(logrus.Fields{"width": b.Dx(), "height": b.Dy()}).Debug("Image decoded")

	input, err := c.transform.Apply(img)
	if err != nil {
		return nil, fmt.Errorf("failed to preprocess image: %w", err)
	}

	logits, err := c.engine.Run(input)
	if err != nil {
		return nil, err
	}

	p, err := Decide(logits, c.Labels, c.topK)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{
		"index":      p.Index,
		"label":      p.Label,
		"confidence": p.Confidence,
	}).Info("Prediction")
	return p, nil
}

func (c *Classifier) Close() {
	if c.engine != nil {
		c.engine.Close()
	}
}

func mustExist(path string, notFound error) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", notFound, path)
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return nil
}
