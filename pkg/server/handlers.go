package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mercator-hq/riskctl/pkg/facts"
	"mercator-hq/riskctl/pkg/history"
	"mercator-hq/riskctl/pkg/model"
	"mercator-hq/riskctl/pkg/workspace"
)

// errInvalidBody marks request bodies that failed to decode or validate.
var errInvalidBody = errors.New("invalid request body")

// decode reads a JSON body into dst, bounded by the configured body limit.
// An empty body leaves dst untouched.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if s.config.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

// badBody writes 400 for invalid bodies and the mapped status otherwise.
func (s *Server) badBody(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errInvalidBody) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.fail(w, r, err)
}

// checkFacts requires a facts object with a string scope and a base object.
func checkFacts(f *facts.Facts) error {
	if f == nil {
		return fmt.Errorf("%w: facts is required", errInvalidBody)
	}
	if _, ok := f.Lookup("scope").AsString(); !ok {
		return fmt.Errorf("%w: facts.scope must be a string", errInvalidBody)
	}
	if f.Section(facts.BaseSection).Kind() != facts.KindMap {
		return fmt.Errorf("%w: facts.base must be an object", errInvalidBody)
	}
	return nil
}

func modelParam(r *http.Request) string {
	return r.URL.Query().Get("modelDir")
}

type evaluateRequest struct {
	Facts    *facts.Facts `json:"facts"`
	ModelDir string       `json:"modelDir"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.badBody(w, r, err)
		return
	}
	if err := checkFacts(req.Facts); err != nil {
		s.badBody(w, r, err)
		return
	}
	ev, err := s.svc.Evaluate(r.Context(), *req.Facts, req.ModelDir)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type diffRequest struct {
	Facts       *facts.Facts `json:"facts"`
	OldModelDir string       `json:"oldModelDir"`
	NewModelDir string       `json:"newModelDir"`
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req diffRequest
	if err := s.decode(w, r, &req); err != nil {
		s.badBody(w, r, err)
		return
	}
	if err := checkFacts(req.Facts); err != nil {
		s.badBody(w, r, err)
		return
	}
	if strings.TrimSpace(req.OldModelDir) == "" || strings.TrimSpace(req.NewModelDir) == "" {
		s.badBody(w, r, fmt.Errorf("%w: oldModelDir and newModelDir are required", errInvalidBody))
		return
	}
	c, err := s.svc.Diff(r.Context(), *req.Facts, req.OldModelDir, req.NewModelDir)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type validateResponse struct {
	ModelDir string          `json:"modelDir"`
	Warnings []model.Warning `json:"warnings"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.badBody(w, r, err)
		return
	}
	ws, err := s.svc.Validate(r.Context(), req.ModelDir, req.Facts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ws == nil {
		ws = []model.Warning{}
	}
	writeJSON(w, http.StatusOK, validateResponse{ModelDir: req.ModelDir, Warnings: ws})
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.ModelInfo(r.Context(), modelParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) workspace(w http.ResponseWriter, r *http.Request) *workspace.Store {
	ws := s.svc.Workspace()
	if ws == nil {
		writeError(w, http.StatusNotImplemented, "no workspace configured")
	}
	return ws
}

func (s *Server) handleListSystems(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	if ws == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"systems": ws.List()})
}

type createRequest struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

func (s *Server) handleCreateSystem(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	if ws == nil {
		return
	}
	var req createRequest
	if err := s.decode(w, r, &req); err != nil {
		s.badBody(w, r, err)
		return
	}
	if req.ID == "" {
		req.ID = "system"
	}
	sys, err := ws.Create(req.ID, req.Path)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": sys.ID})
}

func (s *Server) handleGetSystem(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	if ws == nil {
		return
	}
	sys, err := ws.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, workspace.ErrSystemNotFound) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": sys.ID, "facts": sys.Facts})
}

type saveRequest struct {
	Facts *facts.Facts `json:"facts"`
}

func (s *Server) handleSaveSystem(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	if ws == nil {
		return
	}
	var req saveRequest
	if err := s.decode(w, r, &req); err != nil || req.Facts == nil {
		writeError(w, http.StatusBadRequest, "Invalid facts")
		return
	}
	if err := ws.Save(r.PathValue("id"), *req.Facts); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleEvaluateSystem(w http.ResponseWriter, r *http.Request) {
	ev, err := s.svc.EvaluateSystem(r.Context(), r.PathValue("id"), modelParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type addRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleAddSystem(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	if ws == nil {
		return
	}
	var req addRequest
	if err := s.decode(w, r, &req); err != nil {
		s.badBody(w, r, err)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	sys, err := ws.AddExisting(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": sys.ID, "path": req.Path})
}

type removeRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleRemoveSystem(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	if ws == nil {
		return
	}
	var req removeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.badBody(w, r, err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := ws.Remove(req.ID); err != nil {
		if errors.Is(err, workspace.ErrSystemNotFound) {
			writeError(w, http.StatusNotFound, "System not found in portfolio")
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	pf, err := s.svc.Portfolio(r.Context(), modelParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pf)
}

// parseHistoryQuery reads the history filters from URL parameters.
func parseHistoryQuery(r *http.Request) (*history.Query, error) {
	v := r.URL.Query()
	q := &history.Query{SystemID: v.Get("system"), ModelRef: v.Get("model")}

	for name, dst := range map[string]**time.Time{"since": &q.Since, "until": &q.Until} {
		raw := v.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be RFC3339: %v", errInvalidBody, name, err)
		}
		*dst = &t
	}
	for name, dst := range map[string]*int{"limit": &q.Limit, "offset": &q.Offset} {
		raw := v.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer", errInvalidBody, name)
		}
		*dst = n
	}
	return q, nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistoryQuery(r)
	if err != nil {
		s.badBody(w, r, err)
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != history.FormatJSON && format != history.FormatCSV {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q (use json or csv)", format))
		return
	}

	records, err := s.svc.History(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if format == history.FormatCSV {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		if err := history.Export(format, records, w); err != nil {
			s.logger.WarnContext(r.Context(), "history export failed", "error", err)
		}
		return
	}
	if records == nil {
		records = []*history.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}
