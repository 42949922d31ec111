package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/snpixel/worldquant/internal/model"
	"go.uber.org/zap"
)

// Generation modes accepted by Generate
const (
	ModeBasic     = "basic"
	ModeCreative  = "creative"
	ModeOptimized = "optimized"
)

var (
	// ErrUnknownMode is returned when the requested mode is not one of
	// basic, creative or optimized.
	ErrUnknownMode = errors.New("unknown generation mode")
	// ErrNoFields is returned when a template needs a field but the
	// catalog supplied none.
	ErrNoFields = errors.New("no data fields available")
)

// template produces one expression from the sampled working set
type template func() string

// Generator produces candidate alpha expressions from the platform
// catalog. All draws go through the injected random source so call
// sequences are reproducible in tests.
type Generator struct {
	rng    *rand.Rand
	logger *zap.Logger
}

// NewGenerator creates a generator. A nil rng falls back to a
// time-seeded source; a nil logger falls back to a no-op logger.
func NewGenerator(rng *rand.Rand, logger *zap.Logger) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{rng: rng, logger: logger}
}

// Generate produces count expressions in the given mode. Unknown modes
// and an empty field catalog are terminal configuration errors.
func (g *Generator) Generate(count int, mode string, fields []model.DataField, operators []model.Operator) ([]string, error) {
	if count < 0 {
		return nil, fmt.Errorf("expression count must be non-negative, got %d", count)
	}

	g.logger.Info("generating alphas",
		zap.Int("count", count),
		zap.String("mode", mode),
		zap.Int("fields", len(fields)),
		zap.Int("operators", len(operators)))

	switch mode {
	case ModeBasic:
		return g.generateBasic(count, fields, operators)
	case ModeCreative:
		return g.generateCreative(count, fields, operators)
	case ModeOptimized:
		return g.generateOptimized(count, fields, operators)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// ------------------- Basic mode -------------------

func (g *Generator) generateBasic(count int, fields []model.DataField, operators []model.Operator) ([]string, error) {
	if count == 0 {
		return []string{}, nil
	}
	if len(fields) == 0 {
		return nil, ErrNoFields
	}

	byCategory := model.GroupOperatorsByCategory(operators)
	g.logger.Debug("operator catalog", zap.Int("categories", len(byCategory)))

	sample := g.sampleFields(fields, 10)

	templates := []template{
		// Simple rank
		func() string {
			return fmt.Sprintf("rank(%s)", g.randomFieldID(sample))
		},
		// Rolling mean over a lookback window
		func() string {
			return fmt.Sprintf("ts_mean(%s, %d)", g.randomFieldID(sample), g.intBetween(5, 60))
		},
		// Ratio of two fields
		func() string {
			return fmt.Sprintf("divide(%s, %s)", g.randomFieldID(sample), g.randomFieldID(sample))
		},
		// Deviation from a rolling mean
		func() string {
			return fmt.Sprintf("subtract(%s, ts_mean(%s, %d))",
				g.randomFieldID(sample), g.randomFieldID(sample), g.intBetween(5, 60))
		},
		// Simple momentum
		func() string {
			return fmt.Sprintf("subtract(%s, delay(%s, %d))",
				g.randomFieldID(sample), g.randomFieldID(sample), g.intBetween(1, 10))
		},
	}

	return g.instantiate(count, templates), nil
}

// ------------------- Creative mode -------------------

func (g *Generator) generateCreative(count int, fields []model.DataField, operators []model.Operator) ([]string, error) {
	if count == 0 {
		return []string{}, nil
	}
	if len(fields) == 0 {
		return nil, ErrNoFields
	}

	byCategory := model.GroupOperatorsByCategory(operators)
	g.logger.Debug("operator catalog", zap.Int("categories", len(byCategory)))

	sample := g.sampleFields(fields, 20)

	templates := []template{
		// Momentum with normalization
		func() string {
			return fmt.Sprintf("rank(subtract(%s, delay(%s, %d)))",
				g.randomFieldID(sample), g.randomFieldID(sample), g.intBetween(1, 10))
		},
		// Mean reversion
		func() string {
			return fmt.Sprintf("rank(subtract(ts_mean(%s, %d), %s))",
				g.randomFieldID(sample), g.intBetween(10, 60), g.randomFieldID(sample))
		},
		// Ratio with ranking
		func() string {
			return fmt.Sprintf("rank(divide(%s, %s))",
				g.randomFieldID(sample), g.randomFieldID(sample))
		},
		// Volatility adjusted momentum
		func() string {
			return fmt.Sprintf("divide(subtract(%s, delay(%s, %d)), ts_std_dev(%s, %d))",
				g.randomFieldID(sample), g.randomFieldID(sample), g.intBetween(1, 10),
				g.randomFieldID(sample), g.intBetween(10, 60))
		},
		// Two-factor weighted combination
		func() string {
			return fmt.Sprintf("add(multiply(rank(%s), %s), multiply(rank(%s), %s))",
				g.randomFieldID(sample), g.weight(), g.randomFieldID(sample), g.weight())
		},
	}

	return g.instantiate(count, templates), nil
}

// ------------------- Optimized mode -------------------

// generateOptimized builds creative expressions and then applies two
// independent wrapping decisions per expression: industry
// neutralization, then standardization of the (possibly wrapped) result.
func (g *Generator) generateOptimized(count int, fields []model.DataField, operators []model.Operator) ([]string, error) {
	base, err := g.generateCreative(count, fields, operators)
	if err != nil {
		return nil, err
	}

	optimized := make([]string, 0, len(base))
	for _, alpha := range base {
		if g.rng.Float64() > 0.5 {
			alpha = fmt.Sprintf("group_neutralize(%s, industry)", alpha)
		}
		if g.rng.Float64() > 0.7 {
			alpha = fmt.Sprintf("zscore(%s)", alpha)
		}
		optimized = append(optimized, alpha)
	}
	return optimized, nil
}

// ------------------- Sampling helpers -------------------

func (g *Generator) instantiate(count int, templates []template) []string {
	alphas := make([]string, 0, count)
	for i := 0; i < count; i++ {
		pick := templates[g.rng.Intn(len(templates))]
		alphas = append(alphas, pick())
	}
	return alphas
}

// sampleFields draws up to n fields uniformly without replacement.
func (g *Generator) sampleFields(fields []model.DataField, n int) []model.DataField {
	if n > len(fields) {
		n = len(fields)
	}
	sample := make([]model.DataField, 0, n)
	for _, idx := range g.rng.Perm(len(fields))[:n] {
		sample = append(sample, fields[idx])
	}
	return sample
}

func (g *Generator) randomFieldID(sample []model.DataField) string {
	return sample[g.rng.Intn(len(sample))].ID
}

// intBetween draws uniformly from [lo, hi] inclusive.
func (g *Generator) intBetween(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

// weight draws a combination weight from [0.40, 0.60] rendered with
// two decimals.
func (g *Generator) weight() string {
	return fmt.Sprintf("%.2f", 0.4+g.rng.Float64()*0.2)
}
