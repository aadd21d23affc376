// Package server exposes the ingress HTTP API: notification intake, archive
// queries, queue removal, and per-stage start/stop control.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"wai/internal/item"
	"wai/internal/logging"
	"wai/internal/pipeline"
	"wai/internal/queue"
	"wai/internal/store"
)

// StageController is the supervisor surface the control endpoints drive.
type StageController interface {
	Start(stage item.Stage) bool
	Stop(stage item.Stage) bool
	Running(stage item.Stage) bool
}

// Server is the ingress HTTP server.
type Server struct {
	bind     string
	logger   *slog.Logger
	store    *store.Store
	queues   map[item.Stage]*queue.Queue
	dispatch pipeline.Dispatcher
	control  StageController

	listener net.Listener
	server   *http.Server
}

// New constructs the server. The decision queue must be registered in queues
// for the dequeue endpoint to work.
func New(bind string, st *store.Store, queues map[item.Stage]*queue.Queue,
	dispatch pipeline.Dispatcher, control StageController, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	srv := &Server{
		bind:     bind,
		logger:   logging.NewComponentLogger(logger, "api-server"),
		store:    st,
		queues:   queues,
		dispatch: dispatch,
		control:  control,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/notify", srv.handleNotify)
	mux.HandleFunc("/enqueue", srv.handleEnqueue)
	mux.HandleFunc("/get_item", srv.handleGetItem)
	mux.HandleFunc("/dequeue_item", srv.handleDequeueItem)
	mux.HandleFunc("/remove_item", srv.handleRemoveItem)
	mux.HandleFunc("/api/status", srv.handleStatus)
	for _, stage := range item.AllStages() {
		stage := stage
		mux.HandleFunc("/api/start_"+string(stage), srv.handleControl(stage, true))
		mux.HandleFunc("/api/stop_"+string(stage), srv.handleControl(stage, false))
	}

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Start begins serving and arranges shutdown when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	it := item.New(query.Get("creator"), query.Get("title"), query.Get("datecode"), query.Get("url"))
	if err := it.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.dispatch.Dispatch(item.StageDecision, it); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("item queued",
		logging.String("ingress_id", uuid.NewString()),
		logging.String("creator", it.Creator), logging.String("title", it.Title))
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "queued"})
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "Missing 'message' field")
		return
	}
	it, err := ParseMessage(payload.Message)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Unable to process message")
		return
	}
	if err := s.dispatch.Dispatch(item.StageDecision, it); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("item queued",
		logging.String("ingress_id", uuid.NewString()),
		logging.String("creator", it.Creator), logging.String("title", it.Title))
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "queued"})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	outcome, ok := parseArchiveName(query.Get("datafrom"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unknown archive")
		return
	}
	items, err := s.store.ArchiveLoad(outcome)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	name, value := query.Get("name"), query.Get("value")
	filtered := make([]item.Item, 0, len(items))
	for _, it := range items {
		if matchFilter(it, name, value, query.Has("value")) {
			filtered = append(filtered, it)
		}
	}
	s.writeJSON(w, http.StatusOK, filtered)
}

func (s *Server) handleDequeueItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var target item.Item
	if err := json.NewDecoder(r.Body).Decode(&target); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid item payload")
		return
	}
	decisionQueue, ok := s.queues[item.StageDecision]
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "decision queue unavailable")
		return
	}

	// Remove the first exact match only.
	found := false
	removed, err := decisionQueue.Remove(func(queued item.Item) bool {
		if found {
			return false
		}
		if queued.Equal(target) {
			found = true
			return true
		}
		return false
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, removed > 0)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	outcome, ok := parseArchiveName(query.Get("from_file"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unknown archive")
		return
	}
	name, value := query.Get("name"), query.Get("value")
	hasValue := query.Has("value")
	removed, err := s.store.ArchiveRemove(outcome, func(it item.Item) bool {
		return matchFilter(it, name, value, hasValue)
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

type stageStatus struct {
	Running     bool `json:"running"`
	QueueLength int  `json:"queue_length"`
	HasCurrent  bool `json:"has_current"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	payload := make(map[string]stageStatus, len(s.queues))
	for _, stage := range item.AllStages() {
		status := stageStatus{}
		if s.control != nil {
			status.Running = s.control.Running(stage)
		}
		if q, ok := s.queues[stage]; ok {
			status.QueueLength = q.Len()
		}
		if current, err := s.store.LoadCurrent(stage); err == nil && current != nil {
			status.HasCurrent = true
		}
		payload[string(stage)] = status
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleControl(stage item.Stage, start bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if s.control == nil {
			s.writeError(w, http.StatusServiceUnavailable, "stage control unavailable")
			return
		}
		if start {
			s.control.Start(stage)
		} else {
			s.control.Stop(stage)
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"stage":   string(stage),
			"running": s.control.Running(stage),
		})
	}
}

func parseArchiveName(raw string) (item.Outcome, bool) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(raw), ".json")
	return item.ParseOutcome(trimmed)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
