// Copyright 2026 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package landsrv exposes the landing service over HTTP: a land endpoint
// that runs pushrebase against a bookmark, bookmark read and move
// endpoints, a health probe, and prometheus metrics.
//
// The service hosts a single repository; the {repo} path segment names it
// for clients and logs but does not select between stores.
package landsrv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dolthub/landd/libraries/landcore/bookmarks"
	"github.com/dolthub/landd/libraries/landcore/changesets"
	"github.com/dolthub/landd/libraries/landcore/pushrebase"
	"github.com/dolthub/landd/libraries/landcore/skiplist"
	"github.com/dolthub/landd/store/hash"
)

// indexerConcurrency is how many background workers extend the
// reachability index.
const indexerConcurrency = 4

// Server routes landing traffic to the pushrebase engine and the bookmark
// store. Construct with NewServer, serve with ListenAndServe, and release
// metric registrations with Close.
type Server struct {
	lgr       *logrus.Entry
	cfg       *YAMLConfig
	g         changesets.Store
	bm        bookmarks.Store
	idx       *skiplist.Index
	indexer   *skiplist.Indexer
	validator *bookmarks.MoveValidator
	policies  *Policies
	metrics   *pushrebase.Metrics
	srv       *http.Server
}

// NewServer wires a server around the given stores. ctx bounds the
// background indexing workers. Bookmark heads already in bm are enqueued
// for indexing so ancestor checks work from the first request.
func NewServer(ctx context.Context, lgr *logrus.Entry, cfg *YAMLConfig, g changesets.Store, bm bookmarks.Store) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ns, err := bookmarks.NewNamespace(cfg.ScratchPatternStr())
	if err != nil {
		return nil, err
	}
	policies, err := cfg.CompilePolicies()
	if err != nil {
		return nil, err
	}

	idx := skiplist.NewIndex()
	s := &Server{
		lgr:       lgr,
		cfg:       cfg,
		g:         g,
		bm:        bm,
		idx:       idx,
		indexer:   skiplist.NewIndexer(ctx, lgr, idx, g, cfg.IndexDepthVal(), indexerConcurrency),
		validator: bookmarks.NewMoveValidator(g, idx, ns, policies.MovePolicyFor),
		policies:  policies,
		metrics:   pushrebase.NewMetrics(prometheus.Labels(cfg.MetricsLabels)),
	}
	s.srv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host(), cfg.Port()),
		Handler: s.Router(),
	}

	heads, err := bm.All(ctx)
	if err != nil {
		s.metrics.Close()
		return nil, err
	}
	for _, id := range heads {
		s.indexer.Enqueue(id)
	}
	return s, nil
}

// Router builds the service's HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/repos/{repo}", func(r chi.Router) {
		r.Post("/land", s.handleLand)
		r.Get("/bookmarks", s.handleListBookmarks)
		r.Post("/bookmarks/move", s.handleMoveBookmark)
		r.Get("/bookmarks/*", s.handleReadBookmark)
	})
	return r
}

// ListenAndServe serves until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.lgr.WithField("addr", s.srv.Addr).Info("landing service listening")
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Close unregisters the server's metrics. It does not stop the listener;
// call Shutdown first.
func (s *Server) Close() error {
	if s.metrics != nil {
		s.metrics.Close()
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.lgr.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debug("handled request")
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(lgr *logrus.Entry, w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		lgr.WithError(err).Error("failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(s.lgr, w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(s.lgr, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req landRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}
	batch, err := decodeChangesets(ctx, s.g, req.Changesets)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(batch) > 0 {
		if err := s.g.Put(ctx, batch...); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, changesets.ErrChangesetNotFound) {
				status = http.StatusBadRequest
			}
			s.writeError(w, status, err)
			return
		}
	}

	onto := bookmarks.Name(req.Bookmark)
	if onto == bookmarks.DoNotRebase {
		s.writeError(w, http.StatusBadRequest,
			fmt.Errorf("bookmark %q is reserved for pushes that must not be rewritten; use a bookmark move", onto))
		return
	}
	cfg := pushrebase.Config{
		Flags:   s.policies.FlagsFor(onto),
		Index:   s.idx,
		Metrics: s.metrics,
		Lgr:     s.lgr,
	}
	out, err := pushrebase.Pushrebase(ctx, cfg, s.g, s.bm, onto, batch)
	if err != nil {
		s.writeError(w, statusForLandError(err), err)
		return
	}
	s.indexer.Enqueue(out.Head)

	resp := landResponse{
		Head:       out.Head.String(),
		RetryCount: out.RetryCount,
		Rebased:    make([]wireRebased, 0, len(out.Rebased)),
	}
	for _, p := range out.Rebased {
		resp.Rebased = append(resp.Rebased, wireRebased{Old: p.Old.String(), New: p.New.String()})
	}
	writeJSON(s.lgr, w, http.StatusOK, resp)
}

// statusForLandError maps pushrebase failures onto HTTP statuses: malformed
// or unrebaseable pushes are 400s, conflicts are 409s, hook rejections are
// 403s, and an exhausted retry budget is a 503 the client may retry.
func statusForLandError(err error) int {
	var (
		noRoot    pushrebase.NoCommonRootError
		p2Root    pushrebase.P2RootRebaseForbiddenError
		conflicts pushrebase.ConflictsError
		caseErr   pushrebase.PotentialCaseConflictError
		hookErr   pushrebase.HookRejectedError
	)
	switch {
	case errors.Is(err, pushrebase.ErrNoPushedChangesets),
		errors.Is(err, pushrebase.ErrTooManyHeads),
		errors.Is(err, pushrebase.ErrNoRoots),
		errors.Is(err, pushrebase.ErrMergesBlocked),
		errors.Is(err, pushrebase.ErrRebaseOverMerge),
		errors.Is(err, pushrebase.ErrRootTooFarBehind),
		errors.Is(err, bookmarks.ErrInvalidName),
		errors.As(err, &noRoot),
		errors.As(err, &p2Root):
		return http.StatusBadRequest
	case errors.As(err, &conflicts), errors.As(err, &caseErr):
		return http.StatusConflict
	case errors.As(err, &hookErr):
		return http.StatusForbidden
	case errors.Is(err, pushrebase.ErrTooManyRebaseAttempts):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	all, err := s.bm.All(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := make([]wireBookmark, 0, len(all))
	for name, id := range all {
		resp = append(resp, wireBookmark{Name: name.String(), Target: id.String()})
	}
	sortBookmarks(resp)
	writeJSON(s.lgr, w, http.StatusOK, resp)
}

func (s *Server) handleReadBookmark(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := bookmarks.Name(chi.URLParam(r, "*"))

	id, exists, err := s.bm.Read(ctx, name)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !exists {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("bookmark %q not found", name))
		return
	}

	resp := bookmarkResponse{Name: name.String(), Target: id.String()}
	if limStr := r.URL.Query().Get("log"); limStr != "" {
		lim, err := parseLogLimit(limStr)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		entries, err := s.bm.Log(ctx, name, lim)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp.Log = make([]wireLogEntry, 0, len(entries))
		for _, e := range entries {
			resp.Log = append(resp.Log, newWireLogEntry(e))
		}
	}
	writeJSON(s.lgr, w, http.StatusOK, resp)
}

func (s *Server) handleMoveBookmark(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return
	}
	name := bookmarks.Name(req.Name)

	var to hash.Hash
	if req.To != "" {
		var ok bool
		if to, ok = hash.MaybeParse(req.To); !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("bad target hash %q", req.To))
			return
		}
	}

	current, exists, err := s.bm.Read(ctx, name)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if to.IsEmpty() && !exists {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("bookmark %q not found", name))
		return
	}

	opts := bookmarks.MoveOptions{
		AllowNonFastForward: req.AllowNonFastForward,
		Force:               req.Force,
	}
	if err := s.validator.ValidateMove(ctx, name, current, to, opts); err != nil {
		s.writeError(w, statusForMoveError(err), err)
		return
	}

	expectedOld := current
	if req.ExpectedOld != "" {
		var ok bool
		if expectedOld, ok = hash.MaybeParse(req.ExpectedOld); !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("bad expected_old hash %q", req.ExpectedOld))
			return
		}
	}

	tx := s.bm.NewTransaction()
	switch {
	case to.IsEmpty():
		tx.Delete(name, expectedOld, bookmarks.ReasonManualMove)
	case !exists:
		tx.Create(name, to, bookmarks.ReasonManualMove)
	default:
		tx.Update(name, to, expectedOld, bookmarks.ReasonManualMove)
	}
	won, err := tx.Commit(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !won {
		s.writeError(w, http.StatusConflict, fmt.Errorf("bookmark %q moved concurrently", name))
		return
	}
	if !to.IsEmpty() {
		s.indexer.Enqueue(to)
	}

	resp := wireBookmark{Name: name.String()}
	if !to.IsEmpty() {
		resp.Target = to.String()
	}
	writeJSON(s.lgr, w, http.StatusOK, resp)
}

func statusForMoveError(err error) int {
	var nonFF *bookmarks.NonFastForwardError
	switch {
	case errors.As(err, &nonFF):
		return http.StatusConflict
	case errors.Is(err, bookmarks.ErrInvalidName),
		errors.Is(err, bookmarks.ErrDeleteFastForwardOnly):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
