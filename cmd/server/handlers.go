package main

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/visrec/visrec/internal/config"
	"github.com/visrec/visrec/pkg/models"
	"github.com/visrec/visrec/pkg/visrec"
)

type server struct {
	echo    *echo.Echo
	service visrec.Service
	log     *slog.Logger
}

func newServer(service visrec.Service, cfg config.Config, log *slog.Logger) *server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
	}))

	s := &server{echo: e, service: service, log: log}

	e.GET("/health", s.handleHealth)
	e.POST("/api/identify", s.handleIdentify)
	e.POST("/api/media", s.handleIngest)
	e.GET("/api/media", s.handleListMedia)
	e.GET("/api/media/:id", s.handleGetMedia)
	e.DELETE("/api/media/:id", s.handleDeleteMedia)
	e.GET("/api/stats", s.handleStats)

	return s
}

func (s *server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleIdentify(c echo.Context) error {
	var req identifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if len(req.Frames) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "at least one frame is required"})
	}

	queries := make([]models.QueryFingerprint, len(req.Frames))
	for i, f := range req.Frames {
		queries[i] = models.QueryFingerprint{Hash: f.Hash, Vector: f.Vector}
	}

	result, err := s.service.IdentifyFingerprints(c.Request().Context(), queries)
	if err != nil {
		return s.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, toIdentifyResponse(result))
}

func (s *server) handleIngest(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	fps := make([]models.FrameFingerprint, len(req.Fingerprints))
	for i, f := range req.Fingerprints {
		fps[i] = models.FrameFingerprint{Timestamp: f.Timestamp, Hash: f.Hash, Vector: f.Vector}
	}

	mediaID, err := s.service.Ingest(c.Request().Context(), req.Title, req.Year, fps)
	if err != nil {
		return s.errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, ingestResponse{MediaID: mediaID})
}

func (s *server) handleListMedia(c echo.Context) error {
	items, err := s.service.ListMedia()
	if err != nil {
		return s.errorJSON(c, err)
	}
	out := make([]mediaResponse, len(items))
	for i, m := range items {
		out[i] = toMediaResponse(m)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *server) handleGetMedia(c echo.Context) error {
	item, err := s.service.MediaByID(c.Param("id"))
	if err != nil {
		return s.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, toMediaResponse(*item))
}

func (s *server) handleDeleteMedia(c echo.Context) error {
	if err := s.service.DeleteMedia(c.Param("id")); err != nil {
		return s.errorJSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *server) handleStats(c echo.Context) error {
	st, err := s.service.Stats()
	if err != nil {
		return s.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, statsResponse{
		MediaCount:       st.MediaCount,
		FingerprintCount: st.FingerprintCount,
		HashBits:         st.HashBits,
		VectorDim:        st.VectorDim,
	})
}

// errorJSON maps the error taxonomy onto HTTP statuses: bad input is
// 400, missing references 404, everything else 500.
func (s *server) errorJSON(c echo.Context, err error) error {
	var (
		validationErr *models.ValidationError
		schemaErr     *models.SchemaMismatchError
		notFoundErr   *models.NotFoundError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &schemaErr):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.As(err, &notFoundErr):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		s.log.Error("request failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
