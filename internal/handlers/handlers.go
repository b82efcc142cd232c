package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/wildlife-classifier/internal/runner"
)

type Options struct {
	TempDir        string
	MaxUploadBytes int64
	Timeout        time.Duration
	Logger         logrus.FieldLogger
}

type Handler struct {
	runner runner.Runner
	opts   Options
	log    logrus.FieldLogger
}

func NewHandler(r runner.Runner, opts Options) *Handler {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	return &Handler{
		runner: r,
		opts:   opts,
		log:    log,
	}
}

// Register wires every route onto engine.
func (h *Handler) Register(engine *gin.Engine) {
	engine.Use(CORS())
	engine.GET("/", h.Welcome)
	engine.GET("/health", h.Health)
	engine.POST("/api/upload", h.Upload)
	engine.NoRoute(h.NotFound)
}

// CORS allows any origin, answering preflight requests directly.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// RequestLogger logs one line per request once it has been served.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Info("request")
	}
}

func (h *Handler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Wildlife Image Classifier API"})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
}

// Upload stores the "image" form file in a temp file, classifies it in a
// separate process and relays the verdict.
func (h *Handler) Upload(c *gin.Context) {
	if h.opts.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes)
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image file too large"})
			return
		}
		h.log.WithError(err).Info("No file in request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file uploaded"})
		return
	}
	defer file.Close()

	log := h.log.WithFields(logrus.Fields{
		"filename": header.Filename,
		"size":     header.Size,
		"mimetype": header.Header.Get("Content-Type"),
	})
	log.Info("Upload request received")

	tempPath := filepath.Join(h.opts.TempDir, tempFileName(header.Filename))
	if err := writeTempFile(tempPath, file); err != nil {
		log.WithError(err).Error("Failed to write temp file")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Unexpected error during image classification",
			"details": err.Error(),
		})
		return
	}
	defer h.cleanup(tempPath)

	ctx := c.Request.Context()
	if h.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.Timeout)
		defer cancel()
	}

	res, err := h.runner.Run(ctx, tempPath)
	if err != nil {
		var startErr *runner.StartError
		switch {
		case errors.As(err, &startErr):
			log.WithError(err).Error("Failed to start classifier process")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to start classification process",
				"details": startErr.Err.Error(),
			})
		case errors.Is(err, context.DeadlineExceeded):
			log.WithError(err).Error("Classifier timed out")
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Image classification timed out"})
		default:
			log.WithError(err).Error("Classifier failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Image classification failed",
				"details": err.Error(),
			})
		}
		return
	}

	log = log.WithField("exitCode", res.ExitCode)
	log.Debug("Classifier finished")
	status, body := relay(res)
	if status != http.StatusOK {
		log.WithField("stderr", res.Stderr).Error("Classification failed")
	}
	c.JSON(status, body)
}

// relay maps a finished classifier process onto an HTTP response.
func relay(res *runner.Result) (int, gin.H) {
	if res.ExitCode != 0 {
		return http.StatusInternalServerError, gin.H{
			"error":    "Image classification failed",
			"stderr":   res.Stderr,
			"exitCode": res.ExitCode,
		}
	}

	out := strings.TrimSpace(res.Stdout)
	if out == "" {
		return http.StatusInternalServerError, gin.H{
			"error":  "No output from classifier",
			"stderr": res.Stderr,
		}
	}

	var prediction map[string]any
	if err := json.Unmarshal([]byte(out), &prediction); err != nil {
		return http.StatusInternalServerError, gin.H{
			"error":      "Invalid response from classifier",
			"rawOutput":  res.Stdout,
			"parseError": err.Error(),
		}
	}

	if msg, ok := prediction["error"]; ok && msg != nil && msg != "" {
		return http.StatusInternalServerError, gin.H{
			"error":   "Classification error",
			"details": msg,
		}
	}

	return http.StatusOK, gin.H{"prediction": prediction}
}

func tempFileName(original string) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + filepath.Ext(original)
}

func writeTempFile(path string, src io.Reader) error {
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	return dst.Close()
}

func (h *Handler) cleanup(path string) {
	if err := os.Remove(path); err != nil {
		h.log.WithError(err).WithField("path", path).Warn("Could not delete temp file")
		return
	}
	h.log.WithField("path", path).Debug("Temp file deleted")
}
