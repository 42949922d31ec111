package pipeline

import (
	"context"
	"sync"

	"github.com/snpixel/worldquant/internal/engine"
	"github.com/snpixel/worldquant/internal/model"
)

// ValidateExpressions validates a batch against the external checker,
// fanning out across workerCount goroutines. Each worker writes into
// its own slot of a pre-sized slice, so accepted results come back in
// input order regardless of which worker finished first.
func ValidateExpressions(ctx context.Context, validator *engine.Validator, alphas []string, workerCount int) []model.ValidationResult {
	if workerCount <= 1 || len(alphas) <= 1 {
		return validator.ValidateBatch(ctx, alphas)
	}
	if workerCount > len(alphas) {
		workerCount = len(alphas)
	}

	results := make([]model.ValidationResult, len(alphas))
	jobs := make(chan int)

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
					results[idx] = validator.Validate(ctx, alphas[idx])
				}
			}
		}()
	}

dispatch:
	for idx := range alphas {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			// No workers are left to receive once the context is gone
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	accepted := make([]model.ValidationResult, 0, len(alphas))
	for _, result := range results {
		if result.IsValid {
			accepted = append(accepted, result)
		}
	}
	return accepted
}
