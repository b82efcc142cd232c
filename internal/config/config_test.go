package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ONNXRUNTIME_LIB", "")
	t.Setenv("CLASSIFIER_LOG_LEVEL", "")
	t.Setenv("CLASSIFIER_TIMEOUT_MS", "")
	base := t.TempDir()

	cfg, err := Load("", base)
	require.NoError(t, err)

	require.Equal(t, filepath.Join(base, "ml", "model.onnx"), cfg.ModelPath)
	require.Equal(t, filepath.Join(base, "ml", "classes.json"), cfg.LabelsPath)
	require.Equal(t, filepath.Join(base, "classify"), cfg.ClassifierPath)
	require.Equal(t, "input", cfg.InputName)
	require.Equal(t, "output", cfg.OutputName)
	require.Equal(t, 224, cfg.ImageSize)
	require.Equal(t, ImageNetMean, cfg.Mean)
	require.Equal(t, ImageNetStd, cfg.Std)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, DefaultPort, cfg.Port)
	require.Equal(t, int64(DefaultMaxUploadBytes), cfg.MaxUploadBytes)
	require.Equal(t, DefaultTimeout, cfg.ClassifierTimeout())
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CLASSIFIER_LOG_LEVEL", "")
	t.Setenv("CLASSIFIER_TIMEOUT_MS", "")
	base := t.TempDir()
	path := filepath.Join(base, "classifier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
modelPath: /opt/models/resnet18.onnx
labelsPath: labels.txt
imageSize: 256
mean: [0.5, 0.5, 0.5]
std: [0.5, 0.5, 0.5]
logLevel: debug
port: "8080"
classifierTimeoutMs: 1500
`), 0o600))

	cfg, err := Load(path, base)
	require.NoError(t, err)

	require.Equal(t, "/opt/models/resnet18.onnx", cfg.ModelPath)
	require.Equal(t, filepath.Join(base, "labels.txt"), cfg.LabelsPath)
	require.Equal(t, 256, cfg.ImageSize)
	require.Equal(t, [3]float32{0.5, 0.5, 0.5}, cfg.Mean)
	require.Equal(t, [3]float32{0.5, 0.5, 0.5}, cfg.Std)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, 1500*time.Millisecond, cfg.ClassifierTimeout())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("CLASSIFIER_LOG_LEVEL", "warn")
	t.Setenv("CLASSIFIER_TIMEOUT_MS", "")
	base := t.TempDir()
	path := filepath.Join(base, "classifier.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"8080\"\nlogLevel: debug\n"), 0o600))

	cfg, err := Load(path, base)
	require.NoError(t, err)
	require.Equal(t, "9999", cfg.Port)
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_DotEnv(t *testing.T) {
	t.Setenv("CLASSIFIER_TIMEOUT_MS", "")
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, ".env"), []byte("CLASSIFIER_TIMEOUT_MS=2500\n"), 0o600))
	// godotenv never overrides a variable that is already set
	require.NoError(t, os.Unsetenv("CLASSIFIER_TIMEOUT_MS"))
	t.Cleanup(func() { os.Unsetenv("CLASSIFIER_TIMEOUT_MS") })

	cfg, err := Load("", base)
	require.NoError(t, err)
	require.Equal(t, 2500*time.Millisecond, cfg.ClassifierTimeout())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	require.ErrorContains(t, err, "failed to read config")
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("imageSize: [nope"), 0o600))

	_, err := Load(path, "")
	require.ErrorContains(t, err, "failed to parse config")
}
