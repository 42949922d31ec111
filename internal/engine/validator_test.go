package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/snpixel/worldquant/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChecker scripts outcomes per expression and counts calls
type fakeChecker struct {
	outcomes map[string]*model.CheckOutcome
	err      error
	calls    int
}

func (f *fakeChecker) CheckExpression(ctx context.Context, expression string) (*model.CheckOutcome, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if outcome, ok := f.outcomes[expression]; ok {
		return outcome, nil
	}
	return &model.CheckOutcome{Status: model.CheckStatusValid}, nil
}

func TestValidateTooShortSkipsChecker(t *testing.T) {
	checker := &fakeChecker{}
	v := NewValidator(checker, nil)

	for _, expression := range []string{"", "abcd"} {
		t.Run("len_"+expression, func(t *testing.T) {
			result := v.Validate(context.Background(), expression)
			assert.False(t, result.IsValid)
			assert.Equal(t, "Alpha expression is too short", result.Error)
			assert.NotNil(t, result.Details)
		})
	}
	assert.Equal(t, 0, checker.calls, "short expressions must not reach the checker")
}

func TestValidateAccepted(t *testing.T) {
	checker := &fakeChecker{outcomes: map[string]*model.CheckOutcome{
		"rank(close)": {
			Status:  model.CheckStatusValid,
			Details: map[string]interface{}{"settings": "TOP3000"},
		},
	}}
	v := NewValidator(checker, nil)

	result := v.Validate(context.Background(), "rank(close)")
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Error)
	assert.Equal(t, "TOP3000", result.Details["settings"])
	assert.Equal(t, 1, checker.calls)
}

func TestValidateRejectedOutcome(t *testing.T) {
	checker := &fakeChecker{outcomes: map[string]*model.CheckOutcome{
		"rank(nonexistent_field)": {Status: "invalid", Error: "unknown field"},
	}}
	v := NewValidator(checker, nil)

	result := v.Validate(context.Background(), "rank(nonexistent_field)")
	assert.False(t, result.IsValid)
	assert.Equal(t, "unknown field", result.Error)
	assert.NotNil(t, result.Details)
}

func TestValidateRejectedWithoutMessage(t *testing.T) {
	checker := &fakeChecker{outcomes: map[string]*model.CheckOutcome{
		"rank(close)": {Status: "invalid"},
	}}
	v := NewValidator(checker, nil)

	result := v.Validate(context.Background(), "rank(close)")
	assert.False(t, result.IsValid)
	assert.Equal(t, "Unknown error", result.Error)
}

func TestValidateCheckerFailureBecomesResult(t *testing.T) {
	checker := &fakeChecker{err: errors.New("connection refused")}
	v := NewValidator(checker, nil)

	result := v.Validate(context.Background(), "rank(close)")
	assert.False(t, result.IsValid)
	assert.Equal(t, "connection refused", result.Error)
	assert.NotNil(t, result.Details)
}

func TestValidateBatchFiltersAndKeepsOrder(t *testing.T) {
	checker := &fakeChecker{outcomes: map[string]*model.CheckOutcome{
		"rank(bad_one)":   {Status: "invalid", Error: "unknown field"},
		"rank(bad_other)": {Status: "invalid", Error: "unknown field"},
	}}
	v := NewValidator(checker, nil)

	in := []string{"rank(open)", "rank(bad_one)", "rank(close)", "rank(bad_other)", "rank(volume)"}
	results := v.ValidateBatch(context.Background(), in)

	require.Len(t, results, 3)
	assert.LessOrEqual(t, len(results), len(in))
	assert.Equal(t, "rank(open)", results[0].Expression)
	assert.Equal(t, "rank(close)", results[1].Expression)
	assert.Equal(t, "rank(volume)", results[2].Expression)
	for _, result := range results {
		assert.True(t, result.IsValid)
	}
	assert.Equal(t, len(in), checker.calls, "every expression is evaluated")
}

func TestValidateBatchEmpty(t *testing.T) {
	v := NewValidator(&fakeChecker{}, nil)
	assert.Empty(t, v.ValidateBatch(context.Background(), nil))
}
