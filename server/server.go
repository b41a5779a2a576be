// Package server exposes the models of a pipeline Registry over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swdee/go-dlinfer"
	"github.com/swdee/go-dlinfer/pipeline"
	"go.uber.org/zap"
)

// DefaultMaxBodySize is the largest image accepted by the infer endpoint
const DefaultMaxBodySize = 32 << 20

// ModelInfo describes a registered model
type ModelInfo struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Task        string `json:"task"`
	Runtime     string `json:"runtime"`
	Accelerated bool   `json:"accelerated"`
	InputType   string `json:"input_type"`
}

// Server handles HTTP requests for the models of a Registry
type Server struct {
	reg     *pipeline.Registry
	log     *zap.Logger
	engine  *gin.Engine
	maxBody int64
}

// New creates a Server over the models of reg
func New(reg *pipeline.Registry, log *zap.Logger) *Server {

	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		reg:     reg,
		log:     log,
		engine:  gin.New(),
		maxBody: DefaultMaxBodySize,
	}

	s.engine.Use(gin.Recovery(), s.logRequest)

	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/models", s.listModels)
	s.engine.POST("/models/:name/infer", s.infer)

	return s
}

// Handler returns the http.Handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down http server: %w", err)
		}

		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	}
}

// logRequest logs every request once it has been handled
func (s *Server) logRequest(c *gin.Context) {

	start := time.Now()
	c.Next()

	s.log.Info("http request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("latency", time.Since(start)),
	)
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "models": s.reg.Len()})
}

func (s *Server) listModels(c *gin.Context) {

	pipelines := s.reg.List()
	models := make([]ModelInfo, 0, len(pipelines))

	for _, p := range pipelines {
		models = append(models, ModelInfo{
			ID:          p.ID,
			Name:        p.Name(),
			Task:        string(p.Config.TaskType),
			Runtime:     p.Config.Runtime.String(),
			Accelerated: p.Config.Accelerated,
			InputType:   p.Config.DataType.String(),
		})
	}

	c.JSON(http.StatusOK, models)
}

// infer runs a model over the uploaded image and responds with the
// annotated frame as JPEG.  The image is either the raw request body or the
// multipart form file named image
func (s *Server) infer(c *gin.Context) {

	name := c.Param("name")
	p, ok := s.reg.Get(name)

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("model %s not found", name)})
		return
	}

	body, err := s.readImage(c)

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	frame, err := pipeline.DecodeFrame(body)

	if err != nil {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
		return
	}

	defer frame.Close()

	out, err := p.Process(frame)

	if err != nil {
		s.log.Error("inference failed", zap.String("model", name), zap.Error(err))

		status := http.StatusUnprocessableEntity

		if errors.Is(err, dlinfer.ErrRuntimeInvocation) || errors.Is(err, dlinfer.ErrSessionClosed) {
			status = http.StatusInternalServerError
		}

		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	defer out.Close()

	jpg, err := pipeline.EncodeJPEG(out)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", jpg)
}

// readImage returns the encoded image bytes of the request
func (s *Server) readImage(c *gin.Context) ([]byte, error) {

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody)

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		fh, err := c.FormFile("image")

		if err != nil {
			return nil, fmt.Errorf("missing image form file: %w", err)
		}

		f, err := fh.Open()

		if err != nil {
			return nil, err
		}

		defer f.Close()

		return io.ReadAll(f)
	}

	body, err := io.ReadAll(c.Request.Body)

	if err != nil {
		return nil, fmt.Errorf("error reading request body: %w", err)
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("request body is empty")
	}

	return body, nil
}
