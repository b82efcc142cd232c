package main

import (
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/wildlife-classifier/internal/config"
	"github.com/Brownie44l1/wildlife-classifier/internal/handlers"
	"github.com/Brownie44l1/wildlife-classifier/internal/logging"
	"github.com/Brownie44l1/wildlife-classifier/internal/runner"
)

func main() {
	var configPath string
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve image uploads and classify each in a fresh classifier process",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			serve(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(configPath string) {
	baseDir, err := config.BaseDir()
	if err != nil {
		logging.New(os.Stderr, "info").Fatalf("Failed to locate base directory: %v", err)
	}

	cfg, err := config.Load(configPath, baseDir)
	if err != nil {
		logging.New(os.Stderr, "info").Fatalf("Failed to load config: %v", err)
	}
	log := logging.New(os.Stderr, cfg.LogLevel)

	classifier, err := newClassifier(cfg, configPath)
	if err != nil {
		log.Fatalf("Failed to resolve config path: %v", err)
	}

	handler := handlers.NewHandler(classifier, handlers.Options{
		TempDir:        cfg.TempDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Timeout:        cfg.ClassifierTimeout(),
		Logger:         log,
	})

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), handlers.RequestLogger(log))
	handler.Register(engine)

	log.Infof("Classifier: %s", cfg.ClassifierPath)
	log.Println("Endpoints:")
	log.Println("  GET  /           - Welcome")
	log.Println("  GET  /health     - Health check")
	log.Println("  POST /api/upload - Classify an uploaded image")
	log.Infof("Upload test: curl -X POST -F \"image=@animal.jpg\" http://localhost:%s/api/upload", cfg.Port)
	log.Infof("Listening on port %s", cfg.Port)

	if err := engine.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// newClassifier builds the per-request classifier process. The server's
// config file is forwarded so both processes see the same settings.
func newClassifier(cfg *config.Config, configPath string) (*runner.Process, error) {
	var args []string
	if configPath != "" {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return nil, err
		}
		args = append(args, "--config", abs)
	}
	return runner.NewProcess(cfg.ClassifierPath, args...), nil
}
