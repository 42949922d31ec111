package engine

import (
	"regexp"
	"strconv"

	"go.uber.org/zap"
)

// paramPattern matches an integer literal occurring as the last argument
// of a comma-containing call: identifier, "(", a non-comma context
// argument, ",", optional whitespace, digits, ")".
var paramPattern = regexp.MustCompile(`(\w+)\(([^,]+),\s*(\d+)\)`)

// NumericParameter describes one tunable integer literal found inside
// an expression string.
type NumericParameter struct {
	Function string `json:"function"`
	Value    int    `json:"value"`
	Start    int    `json:"start"` // byte offset of the first digit
	End      int    `json:"end"`   // byte offset one past the last digit
}

// lookbackFunctions take a trailing lookback-window argument
var lookbackFunctions = map[string]bool{
	"ts_mean":    true,
	"ts_std_dev": true,
	"ts_rank":    true,
	"ts_min":     true,
	"ts_max":     true,
}

// commonPeriods are lookback windows that tend to simulate well
// (week, two weeks, month, quarter, half year, trading year).
var commonPeriods = []int{5, 10, 20, 60, 120, 252}

// Optimizer rewrites numeric literals embedded in expressions toward
// heuristically better values. It is a bounded nudge, not a search: the
// lookback rule moves a literal at most one unit per call, so callers
// converge a far-off value by re-invoking Optimize.
type Optimizer struct {
	logger *zap.Logger
}

// NewOptimizer creates an optimizer. A nil logger falls back to a
// no-op logger.
func NewOptimizer(logger *zap.Logger) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{logger: logger}
}

// OptimizeBatch optimizes each expression independently. Output order
// matches input order.
func (o *Optimizer) OptimizeBatch(alphas []string) []string {
	o.logger.Info("optimizing batch", zap.Int("count", len(alphas)))
	optimized := make([]string, 0, len(alphas))
	for _, alpha := range alphas {
		optimized = append(optimized, o.Optimize(alpha))
	}
	return optimized
}

// Optimize rewrites every recognized numeric parameter of a single
// expression. Expressions with no recognizable parameter are returned
// unchanged.
func (o *Optimizer) Optimize(alpha string) string {
	params := ExtractNumericParams(alpha)

	// Substitute right to left so earlier offsets stay valid when a
	// replacement changes the string length.
	for i := len(params) - 1; i >= 0; i-- {
		p := params[i]
		next := optimizeParameter(p.Function, p.Value)
		if next == p.Value {
			continue
		}
		alpha = alpha[:p.Start] + strconv.Itoa(next) + alpha[p.End:]
	}
	return alpha
}

// ExtractNumericParams scans an expression left to right for every
// non-overlapping trailing integer argument.
func ExtractNumericParams(expression string) []NumericParameter {
	matches := paramPattern.FindAllStringSubmatchIndex(expression, -1)
	params := make([]NumericParameter, 0, len(matches))
	for _, m := range matches {
		// Submatch index pairs: 2,3 = function name; 6,7 = digit run.
		value, err := strconv.Atoi(expression[m[6]:m[7]])
		if err != nil {
			continue
		}
		params = append(params, NumericParameter{
			Function: expression[m[2]:m[3]],
			Value:    value,
			Start:    m[6],
			End:      m[7],
		})
	}
	return params
}

// optimizeParameter applies the per-function tuning rule. Functions
// without a rule keep their value.
func optimizeParameter(function string, value int) int {
	switch {
	case lookbackFunctions[function]:
		switch {
		case value < 10:
			// Minimum window of 5
			if value < 5 {
				return 5
			}
			return value
		case value > 250:
			// Maximum window of 250
			return 250
		case value >= 50 && value <= 100:
			// These simulate well as-is
			return value
		default:
			// Nudge one step toward the nearest common period
			if nearestCommonPeriod(value) > value {
				return value + 1
			}
			return value - 1
		}
	case function == "delay":
		// Keep delays between 1 and 20
		if value < 1 {
			return 1
		}
		if value > 20 {
			return 20
		}
		return value
	}
	return value
}

// nearestCommonPeriod scans ascending and keeps only strictly smaller
// distances, so an exact distance tie resolves to the smaller period.
func nearestCommonPeriod(value int) int {
	closest := commonPeriods[0]
	best := absInt(value - closest)
	for _, period := range commonPeriods[1:] {
		if d := absInt(value - period); d < best {
			best = d
			closest = period
		}
	}
	return closest
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
