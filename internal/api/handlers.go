package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/trade-engine/tick-viewer/internal/domain"
	"github.com/trade-engine/tick-viewer/internal/services"
)

const dateLayout = "2006-01-02"

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	q, err := parseFileQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	files, err := s.svc.ListFiles(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.ListingOf(files))
}

func (s *Server) handleFileData(w http.ResponseWriter, r *http.Request) {
	s.writeRecords(w, r, mux.Vars(r)["id"])
}

// handleDataForm accepts the form-encoded file_id used by the browser client.
func (s *Server) handleDataForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	id := r.PostForm.Get("file_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "file_id required")
		return
	}
	s.writeRecords(w, r, id)
}

func (s *Server) writeRecords(w http.ResponseWriter, r *http.Request, id string) {
	result, err := s.svc.LoadRecords(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("X-Dropped-Rows", fmt.Sprint(result.DroppedCount()))
	writeJSON(w, http.StatusOK, result.Records)
}

func (s *Server) handleAverage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	ids := r.Form["file_id"]
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "at least one file_id required")
		return
	}

	avg, err := s.svc.AverageFiles(r.Context(), ids)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, avg)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Status())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.svc.Invalidate()
	files, err := s.svc.ListFiles(r.Context(), services.FileQuery{})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": len(files)})
}

func parseFileQuery(r *http.Request) (services.FileQuery, error) {
	var q services.FileQuery
	values := r.URL.Query()

	strategy, err := domain.ParseStrategy(values.Get("strategy"))
	if err != nil {
		return q, err
	}
	q.Strategy = strategy

	if q.Start, err = parseDate(values.Get("start_date")); err != nil {
		return q, fmt.Errorf("invalid start_date: %w", err)
	}
	if q.End, err = parseDate(values.Get("end_date")); err != nil {
		return q, fmt.Errorf("invalid end_date: %w", err)
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return q, errors.New("end_date before start_date")
	}
	return q, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrMalformedInput):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNoData):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrRemoteUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("Unhandled service error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
