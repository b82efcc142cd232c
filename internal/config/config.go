package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultImageSize      = 224
	DefaultPort           = "3000"
	DefaultMaxUploadBytes = 10 << 20
	DefaultTimeout        = 30 * time.Second
)

var (
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Config holds both the classifier and the upload server settings. Zero
// values are replaced by defaults in Load.
type Config struct {
	BaseDir string `yaml:"-"`

	ModelPath         string     `yaml:"modelPath"`
	LabelsPath        string     `yaml:"labelsPath"`
	InputName         string     `yaml:"inputName"`
	OutputName        string     `yaml:"outputName"`
	ImageSize         int        `yaml:"imageSize"`
	Mean              [3]float32 `yaml:"mean"`
	Std               [3]float32 `yaml:"std"`
	SharedLibraryPath string     `yaml:"sharedLibraryPath"`
	LogLevel          string     `yaml:"logLevel"`

	Port                string `yaml:"port"`
	ClassifierPath      string `yaml:"classifierPath"`
	ClassifierTimeoutMs int    `yaml:"classifierTimeoutMs"`
	TempDir             string `yaml:"tempDir"`
	MaxUploadBytes      int64  `yaml:"maxUploadBytes"`
}

// BaseDir returns the directory holding the running executable. Artifacts
// live in its ml/ subdirectory unless configured otherwise.
func BaseDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}
	return filepath.Dir(exe), nil
}

// Load reads an optional YAML file at path (empty means none), applies a
// .env file from baseDir if present, then environment overrides and defaults.
func Load(path, baseDir string) (*Config, error) {
	cfg := &Config{BaseDir: baseDir}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := godotenv.Load(filepath.Join(baseDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("ONNXRUNTIME_LIB"); v != "" {
		c.SharedLibraryPath = v
	}
	if v := os.Getenv("CLASSIFIER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CLASSIFIER_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.ClassifierTimeoutMs = ms
		}
	}
}

func (c *Config) applyDefaults() {
	if c.ModelPath == "" {
		c.ModelPath = filepath.Join("ml", "model.onnx")
	}
	if c.LabelsPath == "" {
		c.LabelsPath = filepath.Join("ml", "classes.json")
	}
	c.ModelPath = c.resolve(c.ModelPath)
	c.LabelsPath = c.resolve(c.LabelsPath)

	if c.InputName == "" {
		c.InputName = "input"
	}
	if c.OutputName == "" {
		c.OutputName = "output"
	}
	if c.ImageSize <= 0 {
		c.ImageSize = DefaultImageSize
	}
	if c.Mean == [3]float32{} {
		c.Mean = ImageNetMean
	}
	// a zero std would divide by zero
	if c.Std[0] == 0 || c.Std[1] == 0 || c.Std[2] == 0 {
		c.Std = ImageNetStd
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.ClassifierPath == "" {
		c.ClassifierPath = "classify"
	}
	c.ClassifierPath = c.resolve(c.ClassifierPath)
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
}

// ClassifierTimeout is how long the server waits for one classifier process.
func (c *Config) ClassifierTimeout() time.Duration {
	if c.ClassifierTimeoutMs <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.ClassifierTimeoutMs) * time.Millisecond
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.BaseDir == "" {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}
