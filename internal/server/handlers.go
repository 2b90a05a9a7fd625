package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/formkv/internal/config"
	"github.com/hyperjump/formkv/internal/document"
	"github.com/hyperjump/formkv/internal/models"
	"github.com/hyperjump/formkv/internal/service"
	"github.com/hyperjump/formkv/internal/storage"
	"go.uber.org/zap"
)

const msgInvalidFile = "Invalid file name in URL query param"

func (s *Server) handleForms(w http.ResponseWriter, r *http.Request) {
	file := r.URL.Query().Get("file")
	s.logger.Debug("forms request", zap.String("file", file))
	e, err := s.svc.Extract(r.Context(), file)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, e.Fields)
	case errors.Is(err, service.ErrMissingFile):
		s.respondError(w, http.StatusBadRequest, "file query param is required")
	case errors.Is(err, document.ErrInvalidKey):
		s.respondError(w, http.StatusBadRequest, msgInvalidFile)
	case errors.Is(err, service.ErrDocumentNotFound):
		s.respondError(w, http.StatusNotFound, msgInvalidFile)
	default:
		s.respondInternalError(w, "extraction failed", err, zap.String("file", file))
	}
}

func (s *Server) handleListExtractions(w http.ResponseWriter, r *http.Request) {
	history := s.svc.History()
	if history == nil {
		s.respondError(w, http.StatusNotImplemented, "history not enabled")
		return
	}
	q := models.ExtractionListQuery{
		Offset: queryInt(r, "offset"),
		Limit:  queryInt(r, "limit"),
	}
	q.Normalize()
	ctx := r.Context()
	list, err := history.ListExtractions(ctx, q.Offset, q.Limit)
	if err != nil {
		s.respondInternalError(w, "list extractions failed", err)
		return
	}
	total, err := history.CountExtractions(ctx)
	if err != nil {
		s.respondInternalError(w, "count extractions failed", err)
		return
	}
	if list == nil {
		list = []*models.Extraction{}
	}
	s.respondJSON(w, http.StatusOK, models.ExtractionList{
		Extractions: list,
		Total:       total,
		Offset:      q.Offset,
		Limit:       q.Limit,
	})
}

func (s *Server) handleGetExtraction(w http.ResponseWriter, r *http.Request) {
	history := s.svc.History()
	if history == nil {
		s.respondError(w, http.StatusNotImplemented, "history not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	e, err := history.GetExtraction(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "extraction not found")
			return
		}
		s.respondInternalError(w, "get extraction failed", err, zap.String("id", id))
		return
	}
	s.respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExtraction(w http.ResponseWriter, r *http.Request) {
	history := s.svc.History()
	if history == nil {
		s.respondError(w, http.StatusNotImplemented, "history not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete extraction request", zap.String("id", id))
	if err := history.DeleteExtraction(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "extraction not found")
			return
		}
		s.respondInternalError(w, "delete extraction failed", err, zap.String("id", id))
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"bucket":          s.svc.Bucket(),
		"history_enabled": s.svc.History() != nil,
	}
	if history := s.svc.History(); history != nil {
		count, err := history.CountExtractions(r.Context())
		if err != nil {
			s.respondInternalError(w, "count extractions failed", err)
			return
		}
		resp["extractions"] = count
	}

	if s.fullConfig != nil {
		configInfo := map[string]interface{}{
			"documents_backend": s.fullConfig.Documents.Backend,
			"analysis_provider": s.fullConfig.Analysis.Provider,
			"features":          s.fullConfig.Analysis.Features,
			"storage_driver":    s.fullConfig.Storage.Driver,
		}
		if s.fullConfig.Storage.Driver == config.DriverSQLite {
			configInfo["database_path"] = s.fullConfig.Storage.DatabasePath
			if n, err := storage.SQLiteFileBytes(s.fullConfig.Storage.DatabasePath); err == nil {
				resp["disk_usage_bytes"] = n
			}
		}
		resp["config"] = configInfo
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondInternalError(w, "stat watch directory failed", err)
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.respondInternalError(w, "watch add directory failed", err)
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.respondInternalError(w, "watch remove directory failed", err)
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" || s.fullConfig == nil {
		return
	}
	s.fullConfigMu.Lock()
	defer s.fullConfigMu.Unlock()
	s.fullConfig.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.fullConfig); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondInternalError logs err and answers 500 with msg only; err may carry server paths.
func (s *Server) respondInternalError(w http.ResponseWriter, msg string, err error, fields ...zap.Field) {
	s.logger.Error(msg, append(fields, zap.Error(err))...)
	s.respondError(w, http.StatusInternalServerError, msg)
}
