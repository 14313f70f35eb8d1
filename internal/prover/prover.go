// Package prover is the proof-computation collaborator. The rest of the
// system only depends on the Prove contract: a long-running call that
// yields a proof artifact or an error message.
package prover

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sudokulabs/proofd/internal/job"
	"github.com/sudokulabs/proofd/internal/sudoku"
)

type Prover interface {
	Prove(ctx context.Context, jobID string, initial, solution sudoku.Board) (*job.ProofResult, error)
}

// Local generates digest-commitment proofs and persists them as
// proof-<jobID>.proof files under the assets directory. Proving time is
// simulated with a fixed delay so watchers have something to watch.
type Local struct {
	assetsDir string
	delay     time.Duration
}

func NewLocal(assetsDir string, delay time.Duration) *Local {
	return &Local{assetsDir: assetsDir, delay: delay}
}

func (p *Local) Prove(ctx context.Context, jobID string, initial, solution sudoku.Board) (*job.ProofResult, error) {
	if err := os.MkdirAll(p.assetsDir, 0755); err != nil {
		return nil, fmt.Errorf("create assets dir: %w", err)
	}

	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.delay):
		}
	}
	// A zero delay skips the select, so check again before persisting:
	// a cancelled job must not leave a success artifact behind.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("proof-%s.proof", jobID)
	path := filepath.Join(p.assetsDir, name)
	if err := os.WriteFile(path, []byte(Digest(initial, solution)), 0644); err != nil {
		return nil, fmt.Errorf("save proof: %w", err)
	}

	return &job.ProofResult{
		PublicValues: "true",
		Proof:        name,
	}, nil
}

// Digest returns a hex-encoded sha256 commitment over the given boards.
// Also used by the synchronous validate/verify endpoints.
func Digest(boards ...sudoku.Board) string {
	h := sha256.New()
	for _, b := range boards {
		for _, row := range b {
			for _, cell := range row {
				h.Write([]byte{byte(cell)})
			}
			h.Write([]byte{0xff}) // row separator
		}
		h.Write([]byte{0xfe}) // board separator
	}
	return hex.EncodeToString(h.Sum(nil))
}
