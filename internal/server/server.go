// Package server exposes the knowledge base and the assistant over a JSON
// HTTP API.
package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"safe-assistant/internal/assistant"
	"safe-assistant/internal/chatstore"
	"safe-assistant/internal/hospitals"
	"safe-assistant/internal/i18n"
	"safe-assistant/internal/kb"
	"safe-assistant/internal/rag"
)

// maxUploadBytes bounds document and audio uploads.
const maxUploadBytes = 32 << 20

// Transcriber converts audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte, language string) (string, error)
}

// HospitalFinder locates the caller and lists nearby hospitals.
type HospitalFinder interface {
	Locate(ctx context.Context) (lat, lon float64, err error)
	Nearby(ctx context.Context, lat, lon float64, radiusMeters, limit int) ([]hospitals.Hospital, error)
}

// Server holds the wired application components behind the HTTP API.
type Server struct {
	echo        *echo.Echo
	store       *kb.Store
	ingestor    *kb.Ingestor
	registry    *kb.Registry
	retriever   *rag.Retriever
	manager     *assistant.Manager
	transcriber Transcriber
	finder      HospitalFinder

	minRelevance float64
	logger       *slog.Logger
}

// New builds the server and registers all routes.
func New(store *kb.Store, ingestor *kb.Ingestor, registry *kb.Registry, retriever *rag.Retriever, manager *assistant.Manager, transcriber Transcriber, finder HospitalFinder, minRelevance float64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("32M"))

	s := &Server{
		echo:         e,
		store:        store,
		ingestor:     ingestor,
		registry:     registry,
		retriever:    retriever,
		manager:      manager,
		transcriber:  transcriber,
		finder:       finder,
		minRelevance: minRelevance,
		logger:       logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.echo.Group("/api/v1")

	api.GET("/health", s.health)
	api.GET("/languages", s.languages)

	api.GET("/collections", s.listCollections)
	api.POST("/collections", s.createCollection)
	api.DELETE("/collections/:name", s.deleteCollection)
	api.POST("/collections/:name/clear", s.clearCollection)

	api.POST("/collections/:name/documents", s.uploadDocument)
	api.GET("/collections/:name/sources", s.listSources)
	api.DELETE("/collections/:name/sources/:source", s.deleteSource)

	api.POST("/collections/:name/search", s.search)

	api.POST("/chat", s.chat)
	api.GET("/chat/sessions", s.listSessions)
	api.GET("/chat/sessions/:id/messages", s.sessionMessages)
	api.DELETE("/chat/sessions/:id", s.deleteSession)
	api.DELETE("/chat/sessions", s.deleteAllSessions)

	api.POST("/transcribe", s.transcribe)
	api.GET("/hospitals", s.nearbyHospitals)
}

// Start serves the API on addr until the listener fails or Shutdown is
// called.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) languages(c echo.Context) error {
	type language struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	out := make([]language, 0, len(i18n.Supported()))
	for _, lang := range i18n.Supported() {
		out = append(out, language{Code: string(lang), Name: i18n.Name(lang)})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) listCollections(c echo.Context) error {
	names := s.store.ListCollections()
	type collection struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	out := make([]collection, 0, len(names))
	for _, name := range names {
		count, err := s.store.Count(name)
		if err != nil {
			return s.fail(err)
		}
		out = append(out, collection{Name: name, Count: count})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) createCollection(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "collection name is required")
	}
	if err := s.store.CreateCollection(req.Name); err != nil {
		return s.fail(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"name": req.Name})
}

func (s *Server) deleteCollection(c echo.Context) error {
	name := c.Param("name")
	if err := s.store.DeleteCollection(name); err != nil {
		return s.fail(err)
	}
	if err := s.registry.DeleteCollection(name); err != nil {
		s.logger.Warn("failed to clear ingestion records", "collection", name, "error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) clearCollection(c echo.Context) error {
	name := c.Param("name")
	if err := s.store.Clear(c.Request().Context(), name); err != nil {
		return s.fail(err)
	}
	if err := s.registry.DeleteCollection(name); err != nil {
		s.logger.Warn("failed to clear ingestion records", "collection", name, "error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) uploadDocument(c echo.Context) error {
	name := c.Param("name")
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field 'file' is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to open uploaded file")
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read uploaded file")
	}

	count, err := s.ingestor.Ingest(c.Request().Context(), name, fileHeader.Filename, data)
	if err != nil {
		return s.fail(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"source": fileHeader.Filename,
		"chunks": count,
	})
}

func (s *Server) listSources(c echo.Context) error {
	name := c.Param("name")
	if !s.store.HasCollection(name) {
		return s.fail(kb.ErrCollectionNotFound)
	}
	sources, err := s.registry.Sources(name)
	if err != nil {
		return s.fail(err)
	}
	type source struct {
		Source string `json:"source"`
		Chunks int    `json:"chunks"`
	}
	out := make([]source, 0, len(sources))
	for src, chunks := range sources {
		out = append(out, source{Source: src, Chunks: chunks})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) deleteSource(c echo.Context) error {
	name := c.Param("name")
	src := c.Param("source")
	deleted, err := s.ingestor.DeleteSource(c.Request().Context(), name, src)
	if err != nil {
		return s.fail(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"deleted": deleted})
}

func (s *Server) search(c echo.Context) error {
	name := c.Param("name")
	var req struct {
		Query        string   `json:"query"`
		K            int      `json:"k"`
		MinRelevance *float64 `json:"min_relevance"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	var (
		results []kb.Result
		err     error
	)
	if req.K > 0 {
		results, err = s.retriever.RetrieveK(c.Request().Context(), name, req.Query, req.K)
	} else {
		results, err = s.retriever.Retrieve(c.Request().Context(), name, req.Query)
	}
	if err != nil {
		return s.fail(err)
	}

	minRelevance := s.minRelevance
	if req.MinRelevance != nil {
		minRelevance = *req.MinRelevance
	}
	results = rag.FilterByRelevance(results, minRelevance)

	type hit struct {
		Text      string  `json:"text"`
		Source    string  `json:"source"`
		Chunk     int     `json:"chunk"`
		Relevance float64 `json:"relevance"`
	}
	out := make([]hit, 0, len(results))
	for _, r := range results {
		out = append(out, hit{
			Text:      r.Text,
			Source:    r.Source,
			Chunk:     r.Index,
			Relevance: rag.Relevance(r.Distance),
		})
	}
	return c.JSON(http.StatusOK, out)
}

type chatRequest struct {
	SessionID  string   `json:"session_id"`
	Collection string   `json:"collection"`
	Language   string   `json:"language"`
	Text       string   `json:"text"`
	Images     []string `json:"images"`
}

func (s *Server) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	images := make([]assistant.Image, 0, len(req.Images))
	for _, encoded := range req.Images {
		img, err := decodeImage(encoded)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid image payload")
		}
		images = append(images, img)
	}

	reply, err := s.manager.Send(c.Request().Context(), assistant.SendRequest{
		SessionID:  req.SessionID,
		Collection: req.Collection,
		Language:   req.Language,
		Text:       req.Text,
		Images:     images,
	})
	if err != nil {
		return s.fail(err)
	}
	return c.JSON(http.StatusOK, reply)
}

func (s *Server) listSessions(c echo.Context) error {
	sessions, err := s.manager.Sessions()
	if err != nil {
		return s.fail(err)
	}
	if sessions == nil {
		sessions = []*chatstore.Session{}
	}
	return c.JSON(http.StatusOK, sessions)
}

func (s *Server) sessionMessages(c echo.Context) error {
	messages, err := s.manager.Messages(c.Param("id"))
	if err != nil {
		return s.fail(err)
	}
	return c.JSON(http.StatusOK, messages)
}

func (s *Server) deleteSession(c echo.Context) error {
	if err := s.manager.Delete(c.Param("id")); err != nil {
		return s.fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteAllSessions(c echo.Context) error {
	if err := s.manager.DeleteAll(); err != nil {
		return s.fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) transcribe(c echo.Context) error {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field 'audio' is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to open uploaded audio")
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read uploaded audio")
	}

	text, err := s.transcriber.Transcribe(c.Request().Context(), fileHeader.Filename, data, c.FormValue("language"))
	if err != nil {
		return s.fail(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"text": text})
}

func (s *Server) nearbyHospitals(c echo.Context) error {
	ctx := c.Request().Context()

	lat, latErr := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.QueryParam("lon"), 64)
	if latErr != nil || lonErr != nil {
		var err error
		lat, lon, err = s.finder.Locate(ctx)
		if err != nil {
			return s.fail(fmt.Errorf("failed to resolve location: %w", err))
		}
	}

	radius, _ := strconv.Atoi(c.QueryParam("radius"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	found, err := s.finder.Nearby(ctx, lat, lon, radius, limit)
	if err != nil {
		return s.fail(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"lat":       lat,
		"lon":       lon,
		"hospitals": found,
	})
}

// decodeImage accepts a base64 payload, optionally as a data URL carrying
// its own MIME type.
func decodeImage(encoded string) (assistant.Image, error) {
	mimeType := "image/jpeg"
	if strings.HasPrefix(encoded, "data:") {
		meta, rest, ok := strings.Cut(encoded, ",")
		if !ok {
			return assistant.Image{}, errors.New("malformed data url")
		}
		mimeType = strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
		encoded = rest
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return assistant.Image{}, err
	}
	if len(data) == 0 {
		return assistant.Image{}, errors.New("empty image payload")
	}
	return assistant.Image{MIMEType: mimeType, Data: data}, nil
}

// fail maps domain errors to HTTP status codes.
func (s *Server) fail(err error) error {
	switch {
	case errors.Is(err, kb.ErrCollectionNotFound),
		errors.Is(err, chatstore.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, kb.ErrCollectionExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, kb.ErrUnsupportedFileType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, assistant.ErrEmptyPrompt):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
