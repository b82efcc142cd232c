package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Brownie44l1/wildlife-classifier/internal/config"
	"github.com/Brownie44l1/wildlife-classifier/internal/logging"
	"github.com/Brownie44l1/wildlife-classifier/internal/model"
	"github.com/Brownie44l1/wildlife-classifier/internal/preprocess"
	"github.com/Brownie44l1/wildlife-classifier/internal/verdict"
)

func main() {
	os.Exit(run(os.Stdout, os.Stderr, os.Args[1:], nil))
}

type flags struct {
	configPath string
	modelPath  string
	labelsPath string
	top        int
}

// run classifies one image and returns the process exit code. Exactly one
// JSON object is written to stdout; everything else goes to stderr.
func run(stdout, stderr io.Writer, args []string, newEngine model.EngineFactory) int {
	code := verdict.ExitOK
	var f flags

	cmd := &cobra.Command{
		Use:           "classify <image-path>",
		Short:         "Classify one image and print a JSON verdict",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, ok := classify(stderr, args, f, newEngine)
			if !ok {
				code = verdict.ExitFailure
			}
			return verdict.Write(stdout, v)
		},
	}
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)
	cmd.Flags().StringVar(&f.configPath, "config", "", "YAML config file")
	cmd.Flags().StringVar(&f.modelPath, "model", "", "ONNX model file (overrides config)")
	cmd.Flags().StringVar(&f.labelsPath, "labels", "", "label list (overrides config)")
	cmd.Flags().IntVar(&f.top, "top", 1, "number of ranked labels to include")
	cmd.InitDefaultHelpFlag()
	cmd.SetArgs(separatePaths(cmd.Flags(), args))

	if err := cmd.Execute(); err != nil {
		// flag errors still honor the JSON contract
		_ = verdict.Write(stdout, verdict.Errorf("%v", err))
		return verdict.ExitFailure
	}
	return code
}

// separatePaths moves every argument that is not one of our flags behind
// "--", so an image path starting with a dash stays a path.
func separatePaths(fs *pflag.FlagSet, args []string) []string {
	var flagArgs, paths []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			paths = append(paths, args[i+1:]...)
			break
		}
		fl := lookupFlag(fs, arg)
		if fl == nil {
			paths = append(paths, arg)
			continue
		}
		flagArgs = append(flagArgs, arg)
		if fl.NoOptDefVal == "" && !strings.Contains(arg, "=") && i+1 < len(args) {
			i++
			flagArgs = append(flagArgs, args[i])
		}
	}
	return append(append(flagArgs, "--"), paths...)
}

func lookupFlag(fs *pflag.FlagSet, arg string) *pflag.Flag {
	switch {
	case strings.HasPrefix(arg, "--") && len(arg) > 2:
		name, _, _ := strings.Cut(arg[2:], "=")
		return fs.Lookup(name)
	case len(arg) == 2 && arg[0] == '-' && arg[1] != '-':
		return fs.ShorthandLookup(arg[1:])
	}
	return nil
}

func classify(stderr io.Writer, args []string, f flags, newEngine model.EngineFactory) (any, bool) {
	if len(args) < 1 {
		return verdict.Errorf("No image path provided"), false
	}
	imagePath := args[0]

	cfg, err := loadConfig(f)
	if err != nil {
		return verdict.Errorf("Setup error: %v", err), false
	}

	log := logging.New(stderr, cfg.LogLevel)
	log.Infof("Starting classification for: %s", imagePath)

	clf, err := model.NewClassifier(model.Options{
		ModelPath:         cfg.ModelPath,
		LabelsPath:        cfg.LabelsPath,
		SharedLibraryPath: cfg.SharedLibraryPath,
		InputName:         cfg.InputName,
		OutputName:        cfg.OutputName,
		Transform: preprocess.Transform{
			Size: cfg.ImageSize,
			Mean: cfg.Mean,
			Std:  cfg.Std,
		},
		TopK:      f.top,
		NewEngine: newEngine,
		Logger:    log,
	})
	switch {
	case errors.Is(err, model.ErrModelNotFound):
		return verdict.Errorf("Model file not found: %s", cfg.ModelPath), false
	case errors.Is(err, model.ErrLabelsNotFound):
		return verdict.Errorf("Labels file not found: %s", cfg.LabelsPath), false
	case err != nil:
		log.WithError(err).Error("setup failed")
		return verdict.Errorf("Setup error: %v", err), false
	}
	defer clf.Close()

	p, err := clf.Classify(imagePath)
	if err != nil {
		return classifyFailure(log, imagePath, err), false
	}

	log.Infof("Animal type: %s", p.Label)
	return verdict.FromPrediction(p), true
}

func classifyFailure(log logrus.FieldLogger, imagePath string, err error) verdict.Failure {
	var idxErr *model.IndexError
	switch {
	case errors.Is(err, model.ErrImageNotFound):
		return verdict.Errorf("Image file not found: %s", imagePath)
	case errors.As(err, &idxErr):
		return verdict.Failure{Error: idxErr.Error()}
	default:
		msg := fmt.Sprintf("Classification error: %v", err)
		log.Error("Exception caught: " + msg)
		return verdict.Failure{Error: msg}
	}
}

func loadConfig(f flags) (*config.Config, error) {
	base, err := config.BaseDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(f.configPath, base)
	if err != nil {
		return nil, err
	}
	if f.modelPath != "" {
		cfg.ModelPath = f.modelPath
	}
	if f.labelsPath != "" {
		cfg.LabelsPath = f.labelsPath
	}
	return cfg, nil
}
