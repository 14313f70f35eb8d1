package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sudokulabs/proofd/internal/config"
	"github.com/sudokulabs/proofd/internal/job"
	"github.com/sudokulabs/proofd/internal/prover"
	"github.com/sudokulabs/proofd/internal/runner"
	"github.com/sudokulabs/proofd/internal/sudoku"
)

var startTime = time.Now()

type Handlers struct {
	cfg      *config.Config
	registry job.Registry
	runner   *runner.Runner
}

func NewHandlers(cfg *config.Config, registry job.Registry, run *runner.Runner) *Handlers {
	return &Handlers{cfg: cfg, registry: registry, runner: run}
}

// JobResponse is the job status shape shared by the submission response,
// the snapshot endpoint and the status watch stream.
type JobResponse struct {
	JobID  string           `json:"job_id"`
	Status job.Status       `json:"status"`
	Result *job.ProofResult `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

type ProveRequest struct {
	InitialBoard sudoku.Board `json:"initial_board"`
	Solution     sudoku.Board `json:"solution"`
}

// Prove accepts a puzzle/solution pair and detaches proof generation.
// Shape errors are rejected here and create no job.
func (h *Handlers) Prove(w http.ResponseWriter, r *http.Request) {
	var req ProveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	id, err := h.runner.Submit(req.InitialBoard, req.Solution)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status": "failed",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusAccepted, JobResponse{
		JobID:  id,
		Status: job.StatusProcessing,
	})
}

// GetJob returns the job's current snapshot. An unknown id is a normal
// not_found status, not a transport error.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, ok := h.registry.Get(id)
	if !ok {
		writeJSON(w, http.StatusOK, JobResponse{
			JobID:  id,
			Status: job.StatusNotFound,
			Error:  "Job not found",
		})
		return
	}
	writeJSON(w, http.StatusOK, JobResponse{
		JobID:  j.ID,
		Status: j.Status,
		Result: j.Result,
		Error:  j.Error,
	})
}

func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.registry.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

type ValidateRequest struct {
	Board sudoku.Board `json:"board"`
}

type VerifyRequest struct {
	InitialBoard sudoku.Board `json:"initial_board"`
	Solution     sudoku.Board `json:"solution"`
}

type ValidityResponse struct {
	Valid bool   `json:"valid"`
	Proof string `json:"proof"`
}

// Validate synchronously checks a single solved board and returns a digest
// commitment over it.
func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	writeJSON(w, http.StatusOK, ValidityResponse{
		Valid: sudoku.IsValidSolution(req.Board),
		Proof: prover.Digest(req.Board),
	})
}

// Verify synchronously checks that a solution completes the given puzzle.
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	writeJSON(w, http.StatusOK, ValidityResponse{
		Valid: sudoku.VerifyReplay(req.InitialBoard, req.Solution),
		Proof: prover.Digest(req.InitialBoard, req.Solution),
	})
}

// ZkpResponse extends the validity shape with a note that the proof is a
// digest commitment, not a real zero-knowledge proof.
type ZkpResponse struct {
	Valid   bool   `json:"valid"`
	Proof   string `json:"proof"`
	Message string `json:"message"`
}

const simulatedProofMessage = "This is a simulated ZKP proof. In a real implementation, SP1 would be used."

// Zkp synchronously verifies a puzzle/solution pair and returns the digest
// commitment labelled as a simulated proof.
func (h *Handlers) Zkp(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	writeJSON(w, http.StatusOK, ZkpResponse{
		Valid:   sudoku.VerifyReplay(req.InitialBoard, req.Solution),
		Proof:   prover.Digest(req.InitialBoard, req.Solution),
		Message: simulatedProofMessage,
	})
}

func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("Sudoku Backend Running!"))
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"node_id":        h.cfg.NodeID,
		"version":        "0.1.0",
		"uptime_seconds": int(time.Since(startTime).Seconds()),
	})
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	processing, complete, failed := h.registry.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"node_id":        h.cfg.NodeID,
		"uptime_seconds": int(time.Since(startTime).Seconds()),
		"jobs": map[string]int{
			"processing":     processing,
			"complete_total": complete,
			"failed_total":   failed,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
