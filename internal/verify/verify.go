/*

Live assertion checks. Each check recomputes a value off-chain with the formulas
package and compares it with what the deployed contract returns. A batch of checks
shares one id so the results of a single verification run can be listed together.

*/

package verify

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/DistributedCollective/sovryn-ops/internal/formulas"
	"github.com/DistributedCollective/sovryn-ops/internal/logger"
	"github.com/DistributedCollective/sovryn-ops/internal/metrics"
	"github.com/DistributedCollective/sovryn-ops/internal/types"
)

var (
	ErrChecksFailed = errors.New("verification checks failed")
	ErrLoanNotFound = errors.New("loan not found")
)

// Store persists check results.
type Store interface {
	SaveCheckResults(ctx context.Context, results []types.CheckResult) error
}

// Task produces the results of one group of checks.
type Task func(ctx context.Context) ([]types.CheckResult, error)

// Summary counts the outcome of a batch.
type Summary struct {
	BatchID string `json:"batch_id"`
	Passed  int    `json:"passed"`
	Failed  int    `json:"failed"`
	Skipped int    `json:"skipped"`
}

type Suite struct {
	batchID     string
	store       Store
	concurrency int
	log         zerolog.Logger
}

// NewSuite starts a batch. store may be nil.
func NewSuite(store Store) *Suite {
	return &Suite{
		batchID:     uuid.New().String(),
		store:       store,
		concurrency: 4,
		log:         logger.GetForComponent("verify"),
	}
}

func (s *Suite) BatchID() string {
	return s.batchID
}

// Run executes tasks in parallel. A task that errors out is reported as a failed check
// named after it instead of aborting the batch.
func (s *Suite) Run(ctx context.Context, tasks map[string]Task) ([]types.CheckResult, Summary, error) {
	names := make([]string, 0, len(tasks))
	for name := range tasks {
		names = append(names, name)
	}
	slices.Sort(names)
	collected := make([][]types.CheckResult, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, name := range names {
		task := tasks[name]
		g.Go(func() error {
			results, err := task(gctx)
			if err != nil {
				s.log.Error().Err(err).Str("task", name).Msg("Check task failed")
				results = append(results, failed("task", name, err))
			}
			collected[i] = results
			return nil
		})
	}
	_ = g.Wait()

	var all []types.CheckResult
	for _, results := range collected {
		all = append(all, results...)
	}
	summary, err := s.Record(ctx, all)
	return all, summary, err
}

// Record stamps results with the batch id, counts them and stores them.
func (s *Suite) Record(ctx context.Context, results []types.CheckResult) (Summary, error) {
	summary := Summary{BatchID: s.batchID}
	for i := range results {
		r := &results[i]
		r.BatchID = s.batchID
		metrics.ObserveCheck(r.Name, r.Passed, r.Skipped)
		switch {
		case r.Skipped:
			summary.Skipped++
			s.log.Debug().Str("check", r.Name).Str("subject", r.Subject).Str("reason", r.Message).Msg("Check skipped")
		case r.Passed:
			summary.Passed++
		default:
			summary.Failed++
			ev := s.log.Warn().Str("check", r.Name).Str("subject", r.Subject)
			if r.Expected != nil && r.Actual != nil {
				ev = ev.Str("expected", r.Expected.String()).Str("actual", r.Actual.String()).Str("tolerance", r.Tolerance.String())
			}
			ev.Str("message", r.Message).Msg("Check failed")
		}
	}

	if s.store != nil && len(results) > 0 {
		if err := s.store.SaveCheckResults(ctx, results); err != nil {
			return summary, fmt.Errorf("store check results: %w", err)
		}
	}

	s.log.Info().
		Str("batch", s.batchID).
		Int("passed", summary.Passed).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("Verification finished")

	if summary.Failed > 0 {
		return summary, fmt.Errorf("%w: %d of %d", ErrChecksFailed, summary.Failed, len(results))
	}
	return summary, nil
}

// compare builds a CheckResult from an off-chain uint256 and an on-chain value.
func compare(name, subject string, expected *uint256.Int, actual, tolerance *big.Int) types.CheckResult {
	return types.NewCheckResult(name, subject, expected.ToBig(), actual, tolerance)
}

func failed(name, subject string, err error) types.CheckResult {
	return types.CheckResult{Name: name, Subject: subject, Message: err.Error(), Timestamp: time.Now()}
}

// toU256 converts on-chain values, stopping at the first that does not fit.
func toU256(values ...*big.Int) ([]*uint256.Int, error) {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		u, err := formulas.FromBig(v)
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}
