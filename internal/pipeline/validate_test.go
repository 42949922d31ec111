package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/snpixel/worldquant/internal/engine"
	"github.com/snpixel/worldquant/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowChecker finishes later expressions first to shake out ordering
// bugs in the fan-out.
type slowChecker struct {
	calls int64
}

func (s *slowChecker) CheckExpression(ctx context.Context, expression string) (*model.CheckOutcome, error) {
	n := atomic.AddInt64(&s.calls, 1)
	time.Sleep(time.Duration(20-n) * time.Millisecond)
	if strings.Contains(expression, "reject") {
		return &model.CheckOutcome{Status: "invalid", Error: "unknown field"}, nil
	}
	return &model.CheckOutcome{Status: model.CheckStatusValid}, nil
}

func TestValidateExpressionsRestoresOrder(t *testing.T) {
	checker := &slowChecker{}
	validator := engine.NewValidator(checker, nil)

	alphas := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		alphas = append(alphas, fmt.Sprintf("rank(field_%02d)", i))
	}

	results := ValidateExpressions(context.Background(), validator, alphas, 4)
	require.Len(t, results, 12)
	for i, result := range results {
		assert.Equal(t, alphas[i], result.Expression)
		assert.True(t, result.IsValid)
	}
}

func TestValidateExpressionsFilters(t *testing.T) {
	validator := engine.NewValidator(&slowChecker{}, nil)

	alphas := []string{
		"rank(field_a)",
		"rank(reject_me)",
		"rank(field_b)",
		"rank(reject_me_too)",
	}
	results := ValidateExpressions(context.Background(), validator, alphas, 3)
	require.Len(t, results, 2)
	assert.Equal(t, "rank(field_a)", results[0].Expression)
	assert.Equal(t, "rank(field_b)", results[1].Expression)
}

func TestValidateExpressionsStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	validator := engine.NewValidator(&slowChecker{}, nil)
	alphas := make([]string, 50)
	for i := range alphas {
		alphas[i] = fmt.Sprintf("rank(field_%02d)", i)
	}

	done := make(chan []model.ValidationResult, 1)
	go func() {
		done <- ValidateExpressions(ctx, validator, alphas, 3)
	}()

	select {
	case results := <-done:
		assert.Empty(t, results)
	case <-time.After(3 * time.Second):
		t.Fatal("ValidateExpressions did not return after context cancellation")
	}
}

func TestValidateExpressionsSingleWorker(t *testing.T) {
	validator := engine.NewValidator(&slowChecker{}, nil)
	results := ValidateExpressions(context.Background(), validator, []string{"rank(field_a)"}, 1)
	require.Len(t, results, 1)
	assert.Equal(t, "rank(field_a)", results[0].Expression)
}
