// File: internal/server/server.go

// Package server exposes the analysis flows over a small local HTTP facade.
// Task inputs arrive as multipart forms (file uploads plus string fields) and
// results are returned as JSON, or as a CSV download for the BOM endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/circuitscope-cli/api/schemas"
	"github.com/xkilldash9x/circuitscope-cli/internal/config"
	"github.com/xkilldash9x/circuitscope-cli/internal/export"
	"github.com/xkilldash9x/circuitscope-cli/internal/orchestrator"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxUploadBytes caps the multipart form memory for schematic and datasheet
// uploads. Files beyond this spill to disk via the multipart reader.
const maxUploadBytes = 32 << 20

// Server hosts the HTTP facade around an orchestrator.
type Server struct {
	orch   *orchestrator.Orchestrator
	logger *zap.Logger
	cfg    config.ServerConfig
	http   *http.Server
}

// New builds a server; Run starts it.
func New(orch *orchestrator.Orchestrator, cfg config.ServerConfig, logger *zap.Logger) *Server {
	s := &Server{
		orch:   orch,
		logger: logger.Named("server"),
		cfg:    cfg,
	}
	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/audit", s.handleAudit)
		r.Post("/bom", s.handleBOM)
		r.Post("/search", s.handleSearch)
		r.Post("/firmware", s.handleFirmware)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP facade listening", zap.String("addr", s.cfg.ListenAddr))
		if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_form", "request must be multipart/form-data")
		return
	}
	schematic, err := formAttachment(r, "schematic")
	if err != nil {
		writeErr(w, http.StatusBadRequest, "missing_schematic", err.Error())
		return
	}
	datasheet, err := optionalFormAttachment(r, "datasheet")
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_datasheet", err.Error())
		return
	}

	outcome, err := s.orch.RunAudit(r.Context(), *schematic,
		r.FormValue("target_part"), datasheet, r.FormValue("notes"))
	if err != nil {
		s.writeRunErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleBOM(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_form", "request must be multipart/form-data")
		return
	}
	schematic, err := formAttachment(r, "schematic")
	if err != nil {
		writeErr(w, http.StatusBadRequest, "missing_schematic", err.Error())
		return
	}

	res, err := s.orch.RunBOM(r.Context(), *schematic)
	if err != nil {
		s.writeRunErr(w, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		name := export.BOMCSVFilename(time.Now())
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		if err := export.WriteBOMCSV(w, res); err != nil {
			s.logger.Error("Streaming BOM CSV failed", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		// Search carries no files; accept a plain form as well.
		if err := r.ParseForm(); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid_form", "malformed request body")
			return
		}
	}
	query := r.FormValue("query")
	if query == "" {
		writeErr(w, http.StatusBadRequest, "missing_query", "a part number or description is required")
		return
	}

	res, err := s.orch.RunPartSearch(r.Context(), query,
		formBool(r, "datasheet"), formBool(r, "cad"), formBool(r, "pricing"))
	if err != nil {
		s.writeRunErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFirmware(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_form", "request must be multipart/form-data")
		return
	}
	schematic, err := formAttachment(r, "schematic")
	if err != nil {
		writeErr(w, http.StatusBadRequest, "missing_schematic", err.Error())
		return
	}

	res, err := s.orch.RunFirmwareGen(r.Context(), *schematic,
		r.FormValue("notes"), r.FormValue("pin_mapping"))
	if err != nil {
		s.writeRunErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeRunErr maps orchestrator failures onto HTTP statuses. Internal detail
// never reaches the client; it is already in the server logs.
func (s *Server) writeRunErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrBusy):
		writeErr(w, http.StatusConflict, "busy", orchestrator.ErrBusy.Error())
	case errors.Is(err, orchestrator.ErrRunFailed):
		writeErr(w, http.StatusBadGateway, "run_failed", orchestrator.ErrRunFailed.Error())
	default:
		writeErr(w, http.StatusBadRequest, "invalid_request", err.Error())
	}
}

func formAttachment(r *http.Request, field string) (*schemas.Attachment, error) {
	att, err := optionalFormAttachment(r, field)
	if err != nil {
		return nil, err
	}
	if att == nil {
		return nil, fmt.Errorf("a %s file is required", field)
	}
	return att, nil
}

func optionalFormAttachment(r *http.Request, field string) (*schemas.Attachment, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, nil
	}
	return readAttachment(headers[0])
}

func readAttachment(hdr *multipart.FileHeader) (*schemas.Attachment, error) {
	f, err := hdr.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload %q: %w", hdr.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading upload %q: %w", hdr.Filename, err)
	}
	return &schemas.Attachment{
		MediaType: schemas.MediaTypeFor(hdr.Filename),
		Data:      data,
	}, nil
}

func formBool(r *http.Request, field string) bool {
	v, _ := strconv.ParseBool(r.FormValue(field))
	return v
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]string{"code": errCode, "message": message},
	})
}
