package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/findthatcharity/orgid-cli/internal/enrich"
	"github.com/findthatcharity/orgid-cli/internal/tabular"
	"github.com/findthatcharity/orgid-cli/internal/wizard"
	"github.com/findthatcharity/orgid-cli/pkg/ftc"
)

const defaultMaxUploadMB = 50

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	limitMB := s.cfg.MaxUploadMB
	if limitMB <= 0 {
		limitMB = defaultMaxUploadMB
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(limitMB)<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "a file upload named \"file\" is required")
		return
	}
	defer file.Close() //nolint:errcheck

	tbl, err := tabular.Read(file, header.Filename, tabular.ReadOptions{
		Encoding: r.FormValue("encoding"),
		Sheet:    r.FormValue("sheet"),
	})
	if err != nil {
		zap.L().Warn("server: could not parse upload", zap.String("file", header.Filename), zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := s.sessions.Create()
	sess.Load(header.Filename, tbl)
	writeJSON(w, http.StatusCreated, sess.View())
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*wizard.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleSetColumn(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Column string `json:"column"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := sess.ChooseColumn(body.Column); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleSetStage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Stage wizard.Stage `json:"stage"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := sess.SetStage(body.Stage); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleSetFields(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body struct {
		Fields []string `json:"fields"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	sess.SetFields(body.Fields)
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	p := sess.Progress()
	writeJSON(w, http.StatusOK, map[string]any{
		"done":    p.Done,
		"total":   p.Total,
		"percent": p.Percent(),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	req, err := sess.Request()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	res, err := s.pipeline.Run(r.Context(), req)
	if err != nil {
		zap.L().Error("server: enrichment failed", zap.String("session_id", sess.ID), zap.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}

	data, err := res.Table.Bytes()
	if err != nil {
		zap.L().Error("server: write output", zap.String("session_id", sess.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not write output file")
		return
	}

	s.sessions.Remove(sess.ID)

	w.Header().Set("Content-Type", res.Table.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	props, err := s.client.ProposeProperties(r.Context())
	fallback := false
	if err != nil || len(props) == 0 {
		zap.L().Warn("server: field proposal unavailable, using defaults", zap.Error(err))
		fallback = true
		props = nil
		for _, p := range s.catalogue.Properties {
			props = append(props, ftc.Property{ID: p.ID, Name: p.Name})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"properties": props,
		"fallback":   fallback,
	})
}

type suggestion struct {
	ftc.Suggestion
	Highlighted string `json:"highlighted"`
}

func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	results, err := s.client.Autocomplete(r.Context(), q, r.URL.Query().Get("orgtype"))
	if err != nil {
		zap.L().Warn("server: autocomplete failed", zap.String("q", q), zap.Error(err))
		writeError(w, http.StatusBadGateway, "autocomplete unavailable")
		return
	}

	out := make([]suggestion, len(results))
	for i, res := range results {
		out[i] = suggestion{
			Suggestion:  res,
			Highlighted: ftc.Highlight(res.Label, q, "<b>", "</b>"),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, wizard.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, enrich.ErrUnknownColumn), errors.Is(err, wizard.ErrUnknownStage):
		return http.StatusBadRequest
	case errors.Is(err, enrich.ErrNoColumn), errors.Is(err, wizard.ErrStageBlocked):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
