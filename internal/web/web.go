// Package web exposes the engine's command surface and derived views
// over HTTP. The API is the UI boundary described by the engine: every
// handler maps onto exactly one engine command or query.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"calgrid/internal/config"
	"calgrid/internal/datemath"
	"calgrid/internal/engine"
	"calgrid/internal/ics"
	appLog "calgrid/internal/log"
	"calgrid/internal/metrics"
	"calgrid/internal/model"
	"calgrid/internal/store"
)

// Server routes HTTP requests to the engine.
type Server struct {
	cfg *config.Config
	eng *engine.Engine
	met *metrics.Set
	mux *http.ServeMux
}

// NewServer constructs a Server around an engine.
func NewServer(cfg *config.Config, eng *engine.Engine, met *metrics.Set) *Server {
	s := &Server{cfg: cfg, eng: eng, met: met, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for this server, wrapped with basic
// auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth rather than locking everyone out.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calgrid", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)

	s.mux.HandleFunc("POST /api/events", s.handleCreate)
	s.mux.HandleFunc("PUT /api/events/{id}", s.handleUpdate)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDelete)
	s.mux.HandleFunc("POST /api/events/{id}/move", s.handleMove)

	s.mux.HandleFunc("POST /api/view/month", s.handleSetMonth)
	s.mux.HandleFunc("POST /api/view/selected", s.handleSetSelected)
	s.mux.HandleFunc("POST /api/view/search", s.handleSetSearch)
	s.mux.HandleFunc("POST /api/view/color", s.handleSetColor)

	s.mux.HandleFunc("POST /api/drag/begin", s.handleDragBegin)
	s.mux.HandleFunc("POST /api/drag/commit", s.handleDragCommit)
	s.mux.HandleFunc("POST /api/drag/cancel", s.handleDragCancel)

	s.mux.HandleFunc("GET /api/export.ics", s.handleExport)
	s.mux.HandleFunc("POST /api/import", s.handleImport)

	if s.met != nil {
		s.mux.Handle("GET /metrics", s.met.Handler())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventDTO is the JSON view of an event.
type eventDTO struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Color          string `json:"color"`
	Recurrence     string `json:"recurrence"`
	CustomInterval int    `json:"customInterval,omitempty"`
	SeriesRootID   string `json:"seriesRootId,omitempty"`
}

// draftDTO is the JSON request body for create/update.
type draftDTO struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Color          string `json:"color"`
	Recurrence     string `json:"recurrence"`
	CustomInterval int    `json:"customInterval,omitempty"`
}

type cellDTO struct {
	Date     string     `json:"date"`
	InMonth  bool       `json:"in_month"`
	Today    bool       `json:"today"`
	Selected bool       `json:"selected"`
	Events   []eventDTO `json:"events"`
}

type snapshotResponse struct {
	Month          string    `json:"month"` // YYYY-MM
	WeekStart      string    `json:"week_start"`
	Cells          []cellDTO `json:"cells"`
	Conflicts      []string  `json:"conflicts"`
	TruncatedRoots []string  `json:"truncated_roots,omitempty"`
}

func toEventDTO(ev model.Event) eventDTO {
	rule := ev.Rule.Normalize()
	dto := eventDTO{
		ID:           ev.ID,
		Title:        ev.Title,
		Description:  ev.Description,
		Date:         ev.Date,
		Time:         ev.Time,
		Color:        string(ev.Color),
		Recurrence:   string(rule.Kind),
		SeriesRootID: ev.SeriesRootID,
	}
	if rule.Kind == model.RuleCustom {
		dto.CustomInterval = rule.Every
	}
	return dto
}

func draftFromDTO(d draftDTO) model.Draft {
	return model.Draft{
		Title:       d.Title,
		Description: d.Description,
		Date:        d.Date,
		Time:        d.Time,
		Color:       model.Color(d.Color),
		Rule:        model.Rule{Kind: model.RuleKind(d.Recurrence), Every: d.CustomInterval},
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap := s.eng.Snapshot()

	cells := make([]cellDTO, 0, len(snap.Cells))
	for _, c := range snap.Cells {
		key := datemath.FormatDate(c.Date)
		events := make([]eventDTO, 0, len(snap.EventsByDate[key]))
		for _, ev := range snap.EventsByDate[key] {
			events = append(events, toEventDTO(ev))
		}
		cells = append(cells, cellDTO{
			Date:     key,
			InMonth:  c.InMonth,
			Today:    c.Today,
			Selected: c.Selected,
			Events:   events,
		})
	}

	writeJSON(w, http.StatusOK, snapshotResponse{
		Month:          snap.Month.Format("2006-01"),
		WeekStart:      s.cfg.WeekStart,
		Cells:          cells,
		Conflicts:      snap.Conflicts,
		TruncatedRoots: snap.TruncatedRoots,
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var d draftDTO
	if !decodeBody(w, r, &d) {
		return
	}
	ev, err := s.eng.Create(draftFromDTO(d))
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(ev))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var d draftDTO
	if !decodeBody(w, r, &d) {
		return
	}
	ev, err := s.eng.Update(r.PathValue("id"), draftFromDTO(d))
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(ev))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.Delete(r.PathValue("id")); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date string `json:"date"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.eng.Move(r.PathValue("id"), body.Date); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetMonth(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Month string `json:"month"` // YYYY-MM
	}
	if !decodeBody(w, r, &body) {
		return
	}
	t, err := time.ParseInLocation("2006-01", body.Month, time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}
	s.eng.SetVisibleMonth(t)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetSelected(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date string `json:"date"` // YYYY-MM-DD, empty clears
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Date == "" {
		s.eng.SetSelectedDate(time.Time{})
		w.WriteHeader(http.StatusNoContent)
		return
	}
	t, err := datemath.ParseDate(body.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	s.eng.SetSelectedDate(t)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetSearch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.eng.SetSearchText(body.Text)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetColor(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Color string `json:"color"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.eng.SetColorFilter(body.Color)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDragBegin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.eng.BeginDrag(body.ID); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDragCommit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date string `json:"date"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.eng.CommitDrag(body.Date); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDragCancel(w http.ResponseWriter, _ *http.Request) {
	s.eng.CancelDrag()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	payload := ics.Export(s.eng.Roots())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calgrid.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, 4<<20)
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	events, err := ics.Import(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse ICS payload")
		return
	}

	imported := 0
	for _, ev := range events {
		draft := model.Draft{
			Title:       ev.Title,
			Description: ev.Description,
			Date:        ev.Date,
			Time:        ev.Time,
			Color:       ev.Color,
			Rule:        ev.Rule,
		}
		if _, uerr := s.eng.Update(ev.ID, draft); uerr != nil {
			appLog.Error("ics import: event rejected", uerr, "event_id", ev.ID)
			continue
		}
		imported++
	}

	writeJSON(w, http.StatusOK, map[string]int{"imported": imported})
}

// decodeBody reads a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeCommandError maps engine errors to HTTP statuses: validation
// failures carry their field map with a 422, refused occurrence moves a
// 409, everything else a 500.
func writeCommandError(w http.ResponseWriter, err error) {
	var verr store.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": verr})
		return
	}
	if errors.Is(err, engine.ErrOccurrenceNotMovable) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	appLog.Error("command failed", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
