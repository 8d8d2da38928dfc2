// Package server exposes ranking runs over websocket so browser clients can
// watch a run stream in.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jastley/resume-ranker/internal/ranking"
	"github.com/jastley/resume-ranker/internal/recordstore"
	"go.uber.org/zap"
)

// RankRequest is the first (and only) message a client sends after the
// upgrade. An empty record id list means "rank everything".
type RankRequest struct {
	Criterion string   `json:"criterion"`
	RecordIDs []string `json:"record_ids,omitempty"`
}

// Ranker runs a scoring pass and streams its events into the sink.
// Implemented by *ranking.Runner.
type Ranker interface {
	Run(ctx context.Context, criterion string, candidates []*recordstore.Candidate, sink ranking.Sink) (*ranking.Result, error)
}

// CandidateLister fetches candidate records. Implemented by
// *recordstore.Client.
type CandidateLister interface {
	ListCandidates(params *recordstore.ListParams) (*recordstore.Candidates, error)
}

type Server struct {
	logger   *zap.Logger
	lister   CandidateLister
	ranker   Ranker
	upgrader websocket.Upgrader
}

func New(logger *zap.Logger, lister CandidateLister, ranker Ranker) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		logger: logger,
		lister: lister,
		ranker: ranker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // the API carries no cookies, origin checks add nothing
			},
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rank", s.handleRank)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return mux
}

// Serve blocks until ctx is cancelled or the listener fails, then shuts the
// server down gracefully.
func (s *Server) Serve(ctx context.Context, listen string) error {
	httpServer := &http.Server{
		Addr:        listen,
		Handler:     s.Handler(),
		ReadTimeout: 5 * time.Second,
		// No write timeout: websocket runs stream for as long as scoring takes.
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.logger.Info("server listening", zap.String("addr", listen))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	var req RankRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.logger.Warn("reading rank request failed", zap.Error(err))
		return
	}

	s.logger.Info("rank request accepted",
		zap.String("remote", r.RemoteAddr),
		zap.Int("record_ids", len(req.RecordIDs)),
	)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Read pump: the client sends nothing after the request, so any read
	// result signals a disconnect and cancels the run. It also services
	// control frames.
	go func() {
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				cancel()
				return
			}
		}
	}()

	sink := newWSSink(conn)

	candidates, err := s.loadCandidates(req.RecordIDs)
	if err != nil {
		s.logger.Error("listing candidate records failed", zap.Error(err))
		_ = sink.Send(ranking.Event{
			Kind:    ranking.EventError,
			Payload: ranking.ErrorPayload{Message: "loading candidate records failed"},
		})
		return
	}

	if _, err := s.ranker.Run(ctx, req.Criterion, candidates.Items, sink); err != nil {
		s.logger.Error("ranking run failed", zap.Error(err))
	}

	// The terminal event already went out through the sink.
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
}

func (s *Server) loadCandidates(ids []string) (*recordstore.Candidates, error) {
	candidates, err := s.lister.ListCandidates(&recordstore.ListParams{IDs: ids})
	if err != nil {
		return nil, err
	}

	// The store already filters by id, but keep the client honest in case it
	// returned a superset.
	return candidates.FilterByIDs(ids), nil
}
