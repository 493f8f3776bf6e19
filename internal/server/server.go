package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/copyleftdev/evop/internal/config"
	apperrors "github.com/copyleftdev/evop/internal/errors"
	"github.com/copyleftdev/evop/internal/logging"
	"github.com/copyleftdev/evop/internal/metrics"
	"github.com/copyleftdev/evop/internal/optimization"
	"github.com/copyleftdev/evop/internal/optimization/evop"
	"github.com/copyleftdev/evop/internal/optimization/objective"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Job statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// OptimizationState represents the state of an optimization job.
// Fields are guarded by the server's optimizationsMu.
type OptimizationState struct {
	ID          string
	Status      string
	Objective   string
	Dimension   int
	StartTime   time.Time
	EndTime     *time.Time
	Iterations  int
	Result      *optimization.OptimizationResult
	Err         error
	Optimizer   optimization.Optimizer
	CancelFunc  context.CancelFunc
	LastUpdated time.Time
}

func (s *OptimizationState) terminal() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Option configures a Server.
type Option func(*Server)

// WithObjectives sets the registry jobs pick their objective from.
func WithObjectives(r *objective.Registry) Option {
	return func(s *Server) { s.objectives = r }
}

// WithMetrics sets the collectors updated by finished jobs.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// Server implements the HTTP and JSON-RPC server for the optimization service.
// It manages optimization jobs and provides endpoints to start, monitor, and cancel them.
type Server struct {
	cfg        *config.Config
	logger     Logger
	objectives *objective.Registry
	metrics    *metrics.Metrics

	optimizations   map[string]*OptimizationState
	optimizationsMu sync.RWMutex
	running         sync.WaitGroup
}

// NewServer creates a new server instance with the given config and logger
// The logger parameter accepts any type that implements the Logger interface
func NewServer(cfg *config.Config, logger Logger, opts ...Option) *Server {
	s := &Server{
		cfg:           cfg,
		logger:        logger,
		optimizations: make(map[string]*OptimizationState),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.objectives == nil {
		s.objectives = objective.Default()
	}
	if s.metrics == nil {
		// Unregistered collectors; cmd/server passes registered ones.
		s.metrics, _ = metrics.New(nil)
	}
	return s
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
		r.Get("/objectives", s.handleObjectives)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// StartRequest describes a new optimization job.
type StartRequest struct {
	Objective     string    `json:"objective"`
	Center        []float64 `json:"center"`
	Delta         []float64 `json:"delta"`
	Eps           *float64  `json:"eps,omitempty"`
	Workers       int       `json:"workers,omitempty"`
	MaxIterations int       `json:"max_iterations,omitempty"`
}

// StartResponse is returned when a job is accepted.
type StartResponse struct {
	ID     string `json:"optimization_id"`
	Status string `json:"status"`
}

// SolutionView is the wire form of a point and its objective value.
// Value is null when the objective returned NaN or an infinity.
type SolutionView struct {
	Parameters []float64 `json:"parameters"`
	Value      *float64  `json:"value"`
}

// IterationView is the wire form of an iteration record.
type IterationView struct {
	Iteration int       `json:"iteration"`
	Point     []float64 `json:"point"`
	Value     *float64  `json:"value"`
	StepNorm  float64   `json:"step_norm"`
	Moved     bool      `json:"moved"`
}

// StatusResponse reports the state of a job.
type StatusResponse struct {
	ID           string          `json:"optimization_id"`
	Status       string          `json:"status"`
	Objective    string          `json:"objective"`
	Dimension    int             `json:"dimension"`
	Iterations   int             `json:"iterations"`
	Evaluations  int             `json:"evaluations,omitempty"`
	Converged    bool            `json:"converged"`
	StartTime    string          `json:"start_time"`
	LastUpdate   string          `json:"last_update"`
	EndTime      string          `json:"end_time,omitempty"`
	BestSolution *SolutionView   `json:"best_solution,omitempty"`
	History      []IterationView `json:"history,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// ObjectiveView describes a registered objective.
type ObjectiveView struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Dimension   int       `json:"dimension"`
	Minimum     float64   `json:"minimum"`
	Minimizer   []float64 `json:"minimizer,omitempty"`
}

// startOptimization validates req and launches the job in the background.
func (s *Server) startOptimization(req StartRequest) (*StartResponse, error) {
	const op = "server.startOptimization"

	def, ok := s.objectives.Lookup(req.Objective)
	if !ok {
		return nil, apperrors.Errorf("unknown objective %q", req.Objective).
			WithOperation(op).WithStatus(http.StatusBadRequest)
	}
	n := len(req.Center)
	if n == 0 {
		return nil, apperrors.New("center is required").WithOperation(op).WithStatus(http.StatusBadRequest)
	}
	if len(req.Delta) != n {
		return nil, apperrors.Wrap(optimization.DimensionMismatch(op, len(req.Delta), n), "center and delta lengths differ")
	}
	if n > s.cfg.Optimization.MaxDimension {
		return nil, apperrors.Errorf("dimension %d exceeds maximum %d", n, s.cfg.Optimization.MaxDimension).
			WithOperation(op).WithStatus(http.StatusBadRequest)
	}
	fn, err := def.Objective(n)
	if err != nil {
		return nil, apperrors.Wrapf(err, "objective %q does not accept dimension %d", def.Name, n)
	}

	eps := s.cfg.Optimization.Tolerance
	if req.Eps != nil {
		eps = *req.Eps
	}
	workers := s.cfg.Optimization.Workers
	if req.Workers > 0 {
		workers = req.Workers
	}
	maxIter := s.cfg.Optimization.MaxIterations
	if req.MaxIterations > 0 && (maxIter == 0 || req.MaxIterations < maxIter) {
		maxIter = req.MaxIterations
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	state := &OptimizationState{
		ID:          id,
		Status:      StatusPending,
		Objective:   def.Name,
		Dimension:   n,
		StartTime:   now,
		CancelFunc:  cancel,
		LastUpdated: now,
	}

	config := optimization.OptimizerConfig{
		Objective:     fn,
		Center:        req.Center,
		Step:          req.Delta,
		Tolerance:     eps,
		MaxIterations: maxIter,
		Workers:       workers,
	}
	if err := evop.Validate(config); err != nil {
		cancel()
		return nil, apperrors.Wrap(err, "invalid optimization request")
	}

	zl := logging.NewZapLogger(s.logger.WithFields(nil)).With(zap.String("optimization_id", id))
	state.Optimizer = evop.NewOptimizer(config,
		evop.WithLogger(zl),
		evop.WithIterationHook(func(rec optimization.IterationRecord) {
			s.optimizationsMu.Lock()
			state.Iterations = rec.Iteration + 1
			state.LastUpdated = time.Now()
			s.optimizationsMu.Unlock()
		}),
	)

	s.optimizationsMu.Lock()
	if err := s.reserveSlotLocked(); err != nil {
		s.optimizationsMu.Unlock()
		cancel()
		return nil, err
	}
	s.optimizations[id] = state
	s.running.Add(1)
	s.optimizationsMu.Unlock()

	go s.runOptimization(ctx, state)

	s.logger.Info("Optimization started", map[string]interface{}{
		"optimization_id": id,
		"objective":       def.Name,
		"dimension":       n,
		"eps":             eps,
		"workers":         workers,
	})

	return &StartResponse{ID: id, Status: StatusPending}, nil
}

// reserveSlotLocked makes room for a new job, evicting the oldest finished
// one when the table is full.
func (s *Server) reserveSlotLocked() error {
	if len(s.optimizations) < s.cfg.Optimization.MaxJobs {
		return nil
	}

	var oldest *OptimizationState
	for _, st := range s.optimizations {
		if !st.terminal() {
			continue
		}
		if oldest == nil || st.EndTime.Before(*oldest.EndTime) {
			oldest = st
		}
	}
	if oldest == nil {
		return apperrors.Errorf("job limit of %d reached", s.cfg.Optimization.MaxJobs).
			WithStatus(http.StatusTooManyRequests)
	}
	delete(s.optimizations, oldest.ID)
	return nil
}

// runOptimization executes the optimization process in a goroutine
func (s *Server) runOptimization(ctx context.Context, state *OptimizationState) {
	defer s.running.Done()

	s.optimizationsMu.Lock()
	if state.Status == StatusPending {
		state.Status = StatusRunning
	}
	s.optimizationsMu.Unlock()

	done := s.metrics.RunStarted()
	result, err := state.Optimizer.Optimize(ctx, optimization.OptimizerConfig{})

	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	cancelled := state.Status == StatusCancelled
	done(result, metrics.Status(result, err, cancelled))

	now := time.Now()
	state.LastUpdated = now
	if cancelled {
		return
	}
	state.EndTime = &now
	state.CancelFunc()

	if err != nil {
		s.logger.Error("Optimization failed", map[string]interface{}{
			"optimization_id": state.ID,
			"error":           err.Error(),
		})
		state.Status = StatusFailed
		state.Err = err
		return
	}

	state.Status = StatusCompleted
	state.Result = result
	state.Iterations = result.Iterations
	s.logger.Info("Optimization completed", map[string]interface{}{
		"optimization_id": state.ID,
		"iterations":      result.Iterations,
		"converged":       result.Converged,
	})
}

// optimizationStatus builds the status report of job id.
func (s *Server) optimizationStatus(id string, withHistory bool) (*StatusResponse, error) {
	s.optimizationsMu.RLock()
	state, exists := s.optimizations[id]
	if !exists {
		s.optimizationsMu.RUnlock()
		return nil, apperrors.Errorf("optimization %q not found", id).WithStatus(http.StatusNotFound)
	}

	resp := &StatusResponse{
		ID:         state.ID,
		Status:     state.Status,
		Objective:  state.Objective,
		Dimension:  state.Dimension,
		Iterations: state.Iterations,
		StartTime:  state.StartTime.Format(time.RFC3339),
		LastUpdate: state.LastUpdated.Format(time.RFC3339),
	}
	if state.EndTime != nil {
		resp.EndTime = state.EndTime.Format(time.RFC3339)
	}
	if state.Err != nil {
		resp.Error = state.Err.Error()
	}
	if state.Result != nil {
		resp.Evaluations = state.Result.Evaluations
		resp.Converged = state.Result.Converged
	}
	optimizer := state.Optimizer
	s.optimizationsMu.RUnlock()

	if best := optimizer.GetBestSolution(); best != nil {
		resp.BestSolution = &SolutionView{Parameters: best.Parameters, Value: finiteOrNil(best.Value)}
	}
	if withHistory {
		history := optimizer.GetHistory()
		resp.History = make([]IterationView, len(history))
		for i, rec := range history {
			resp.History[i] = IterationView{
				Iteration: rec.Iteration,
				Point:     rec.Point,
				Value:     finiteOrNil(rec.Value),
				StepNorm:  rec.StepNorm,
				Moved:     rec.Moved,
			}
		}
	}
	return resp, nil
}

// cancelOptimization cancels a running optimization job.
func (s *Server) cancelOptimization(id string) error {
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	state, exists := s.optimizations[id]
	if !exists {
		return apperrors.Errorf("optimization %q not found", id).WithStatus(http.StatusNotFound)
	}
	if state.terminal() {
		return apperrors.Errorf("cannot cancel optimization with status: %s", state.Status).
			WithStatus(http.StatusConflict)
	}

	state.CancelFunc()
	state.Status = StatusCancelled
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	s.logger.Info("Optimization cancelled", map[string]interface{}{
		"optimization_id": id,
	})
	return nil
}

func (s *Server) listObjectives() []ObjectiveView {
	defs := s.objectives.List()
	views := make([]ObjectiveView, len(defs))
	for i, def := range defs {
		views[i] = ObjectiveView{
			Name:        def.Name,
			Description: def.Description,
			Dimension:   def.Dimension,
			Minimum:     def.Minimum,
		}
		if def.Dimension > 0 && def.Minimizer != nil {
			views[i].Minimizer = def.Minimizer(def.Dimension)
		}
	}
	return views
}

// Jobs returns the ids of all known jobs in start order.
func (s *Server) Jobs() []string {
	s.optimizationsMu.RLock()
	defer s.optimizationsMu.RUnlock()

	states := make([]*OptimizationState, 0, len(s.optimizations))
	for _, st := range s.optimizations {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].StartTime.Before(states[j].StartTime) })

	ids := make([]string, len(states))
	for i, st := range states {
		ids[i] = st.ID
	}
	return ids
}

// Close cancels all running optimizations and waits for them to return.
func (s *Server) Close() error {
	s.optimizationsMu.Lock()
	now := time.Now()
	for _, opt := range s.optimizations {
		if opt.terminal() {
			continue
		}
		opt.CancelFunc()
		opt.Status = StatusCancelled
		opt.EndTime = &now
		opt.LastUpdated = now
	}
	s.optimizationsMu.Unlock()

	s.running.Wait()
	return nil
}

// handleOptimize handles the HTTP POST /optimize endpoint for starting a new optimization
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}

	result, err := s.startOptimization(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

// handleStatus handles GET /status/{id}. History is included unless
// history=false is given.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	withHistory := r.URL.Query().Get("history") != "false"

	result, err := s.optimizationStatus(id, withHistory)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCancel handles DELETE /optimization/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.cancelOptimization(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "cancellation requested",
	})
}

func (s *Server) handleObjectives(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.listObjectives())
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperrors.StatusCode(err), map[string]string{
		"error": err.Error(),
	})
}

// finiteOrNil returns nil for values JSON cannot carry.
func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// writeJSON encodes v before touching w, so an encoding failure still
// reaches the client as a 500.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(map[string]string{
			"error": fmt.Sprintf("encoding response: %v", err),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
