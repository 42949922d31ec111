package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeNoParamsIsIdentity(t *testing.T) {
	o := NewOptimizer(nil)
	tests := []string{
		"rank(close)",
		"rank(divide(open, close))",
		"",
		"zscore(group_neutralize(rank(volume), industry))",
	}
	for _, expression := range tests {
		t.Run(expression, func(t *testing.T) {
			assert.Equal(t, expression, o.Optimize(expression))
		})
	}
}

func TestOptimizeLookbackRules(t *testing.T) {
	o := NewOptimizer(nil)
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"nudge toward 60", "ts_mean(x, 45)", "ts_mean(x, 46)"},
		{"nudge down toward 20", "ts_mean(x, 30)", "ts_mean(x, 29)"},
		{"tiny window floored at 5", "ts_rank(x, 3)", "ts_rank(x, 5)"},
		{"small window kept", "ts_rank(x, 7)", "ts_rank(x, 7)"},
		{"huge window capped", "ts_max(x, 300)", "ts_max(x, 250)"},
		{"good band untouched low edge", "ts_std_dev(x, 50)", "ts_std_dev(x, 50)"},
		{"good band untouched", "ts_min(x, 75)", "ts_min(x, 75)"},
		{"good band untouched high edge", "ts_mean(x, 100)", "ts_mean(x, 100)"},
		{"above band nudges toward 120", "ts_mean(x, 110)", "ts_mean(x, 111)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, o.Optimize(tt.in))
		})
	}
}

func TestOptimizeDelayClamp(t *testing.T) {
	o := NewOptimizer(nil)
	assert.Equal(t, "delay(x, 1)", o.Optimize("delay(x, 0)"))
	assert.Equal(t, "delay(x, 20)", o.Optimize("delay(x, 25)"))
	assert.Equal(t, "delay(x, 10)", o.Optimize("delay(x, 10)"))
}

func TestOptimizeUnknownFunctionIsIdentity(t *testing.T) {
	o := NewOptimizer(nil)
	assert.Equal(t, "decay_linear(x, 500)", o.Optimize("decay_linear(x, 500)"))
}

// When a nested call sits in first-argument position, the pattern
// attributes its trailing literal to the enclosing function, which has
// no tuning rule. The literal stays put.
func TestOptimizeNestedFirstArgumentAttribution(t *testing.T) {
	o := NewOptimizer(nil)
	assert.Equal(t, "subtract(ts_mean(close, 300), x)", o.Optimize("subtract(ts_mean(close, 300), x)"))

	params := ExtractNumericParams("subtract(ts_mean(close, 300), x)")
	require.Len(t, params, 1)
	assert.Equal(t, "subtract", params[0].Function)
	assert.Equal(t, 300, params[0].Value)
}

// A literal below the 50-100 band walks up one step per call toward the
// nearest common period (60) but freezes as soon as it enters the band:
// the band check runs before the nearest-period search, so 45 settles
// at 50, not 60.
func TestOptimizeConvergesToBandEdge(t *testing.T) {
	o := NewOptimizer(nil)

	expression := "ts_mean(close, 45)"
	for step, expected := range []int{46, 47, 48, 49, 50} {
		expression = o.Optimize(expression)
		require.Equal(t, fmt.Sprintf("ts_mean(close, %d)", expected), expression, "after call %d", step+1)
	}

	// Fixed point inside the band
	for i := 0; i < 5; i++ {
		assert.Equal(t, "ts_mean(close, 50)", o.Optimize(expression))
	}
}

func TestOptimizeMultipleParams(t *testing.T) {
	o := NewOptimizer(nil)

	// The delay replacement shortens the string; the literal after it
	// must still land on the right offsets.
	in := "divide(subtract(a, delay(b, 100)), subtract(c, ts_mean(d, 300)))"
	assert.Equal(t, "divide(subtract(a, delay(b, 20)), subtract(c, ts_mean(d, 250)))", o.Optimize(in))

	in = "divide(subtract(high, delay(low, 25)), ts_std_dev(ret, 45))"
	assert.Equal(t, "divide(subtract(high, delay(low, 20)), ts_std_dev(ret, 46))", o.Optimize(in))
}

func TestOptimizeBatchPreservesOrder(t *testing.T) {
	o := NewOptimizer(nil)
	in := []string{
		"ts_mean(a, 45)",
		"rank(b)",
		"delay(c, 25)",
	}
	out := o.OptimizeBatch(in)
	require.Len(t, out, 3)
	assert.Equal(t, "ts_mean(a, 46)", out[0])
	assert.Equal(t, "rank(b)", out[1])
	assert.Equal(t, "delay(c, 20)", out[2])
}

func TestExtractNumericParams(t *testing.T) {
	expression := "divide(subtract(a, ts_mean(close, 45)), delay(open, 3))"
	params := ExtractNumericParams(expression)
	require.Len(t, params, 2)

	assert.Equal(t, "ts_mean", params[0].Function)
	assert.Equal(t, 45, params[0].Value)
	assert.Equal(t, "45", expression[params[0].Start:params[0].End])

	assert.Equal(t, "delay", params[1].Function)
	assert.Equal(t, 3, params[1].Value)
	assert.Equal(t, "3", expression[params[1].Start:params[1].End])
}

func TestExtractNumericParamsNoMatch(t *testing.T) {
	assert.Empty(t, ExtractNumericParams("rank(divide(a, b))"))
	assert.Empty(t, ExtractNumericParams("close"))
}

func TestNearestCommonPeriodTieBreaksSmaller(t *testing.T) {
	// 15 is equidistant from 10 and 20; the ascending scan keeps 10
	assert.Equal(t, 10, nearestCommonPeriod(15))
	assert.Equal(t, 20, nearestCommonPeriod(35))
	assert.Equal(t, 252, nearestCommonPeriod(240))
}
