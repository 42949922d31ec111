package pipeline

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/snpixel/worldquant/internal/engine"
	"github.com/snpixel/worldquant/internal/model"
	"github.com/snpixel/worldquant/internal/store"
	"github.com/snpixel/worldquant/pkg/utils"
	"go.uber.org/zap"
)

// CatalogProvider supplies the field and operator catalogs for the
// configured scope. An empty datasets slice means the provider's
// default datasets.
type CatalogProvider interface {
	GetDataFields(ctx context.Context, datasets []string) ([]model.DataField, error)
	GetOperators(ctx context.Context) ([]model.Operator, error)
}

// Deps are the collaborators a run needs. Rand may be nil for
// time-seeded generation; Logger may be nil.
type Deps struct {
	Catalog CatalogProvider
	Checker engine.SyntaxChecker
	Output  *utils.OutputManager
	Rand    *rand.Rand
	Logger  *zap.Logger
}

// ------------------- Run orchestration -------------------

// Run executes one generation run: catalog fetch, generation, optional
// parameter optimization, validation, export. Catalog and generation
// failures are terminal for the run; per-expression validation
// failures only shrink the accepted set. Returns the accepted alphas
// and the path of the exported file.
func Run(ctx context.Context, runID string, spec model.GenerationRunSpec, deps Deps) (results []model.ValidationResult, outputFile string, err error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("run_id", runID))

	tracker := NewRunTracker(runID)
	logger.Info("starting generation run",
		zap.Int("count", spec.Count),
		zap.String("mode", spec.Mode),
		zap.Bool("optimize", spec.Optimize))

	store.UpdateRunStatus(runID, "running")
	defer func() {
		if err != nil {
			tracker.Finish("failed")
			store.UpdateRunStatus(runID, "failed")
			store.SaveRunError(runID, err)
		}
	}()

	timeout := utils.ParseDuration(spec.Timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// --- CATALOG STAGE ---
	stageStart := tracker.StartStage("catalog", 0)
	store.UpdateRunStatus(runID, "fetching-catalog")
	store.SaveStageProgress(runID, "catalog", "started", &stageStart, nil, 0, 0)

	fields, err := deps.Catalog.GetDataFields(ctx, spec.Datasets)
	if err != nil {
		return nil, "", fmt.Errorf("catalog fetch failed: %w", err)
	}
	operators, err := deps.Catalog.GetOperators(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("operator fetch failed: %w", err)
	}
	tracker.SetCatalogSize(len(fields), len(operators))
	stageEnd := tracker.EndStage("catalog", len(fields)+len(operators), 0)
	store.SaveStageProgress(runID, "catalog", "completed", &stageStart, &stageEnd, 0, len(fields)+len(operators))

	// --- GENERATION STAGE ---
	stageStart = tracker.StartStage("generation", 0)
	store.UpdateRunStatus(runID, "generating")
	store.SaveStageProgress(runID, "generation", "started", &stageStart, nil, 0, 0)

	generator := engine.NewGenerator(deps.Rand, logger)
	alphas, err := generator.Generate(spec.Count, spec.Mode, fields, operators)
	if err != nil {
		return nil, "", fmt.Errorf("generation failed: %w", err)
	}
	tracker.SetGenerated(len(alphas))
	stageEnd = tracker.EndStage("generation", len(alphas), 0)
	store.SaveStageProgress(runID, "generation", "completed", &stageStart, &stageEnd, 0, len(alphas))

	// --- OPTIMIZATION STAGE ---
	if spec.Optimize {
		stageStart = tracker.StartStage("optimization", len(alphas))
		store.UpdateRunStatus(runID, "optimizing")
		store.SaveStageProgress(runID, "optimization", "started", &stageStart, nil, len(alphas), 0)

		alphas = engine.NewOptimizer(logger).OptimizeBatch(alphas)

		stageEnd = tracker.EndStage("optimization", len(alphas), 0)
		store.SaveStageProgress(runID, "optimization", "completed", &stageStart, &stageEnd, len(alphas), len(alphas))
	}

	// --- VALIDATION STAGE ---
	candidates := screenCandidates(alphas, logger)
	stageStart = tracker.StartStage("validation", len(candidates))
	store.UpdateRunStatus(runID, "validating")
	store.SaveStageProgress(runID, "validation", "started", &stageStart, nil, len(candidates), 0)

	workers := spec.Workers.Validation
	if workers == 0 {
		workers = 3 // default
	}
	validator := engine.NewValidator(deps.Checker, logger)
	results = ValidateExpressions(ctx, validator, candidates, workers)

	tracker.SetAccepted(len(results), len(alphas)-len(results))
	stageEnd = tracker.EndStage("validation", len(results), len(alphas)-len(results))
	store.SaveStageProgress(runID, "validation", "completed", &stageStart, &stageEnd, len(alphas), len(results))

	// --- EXPORT STAGE ---
	stageStart = tracker.StartStage("export", len(results))
	store.UpdateRunStatus(runID, "exporting")
	store.SaveStageProgress(runID, "export", "started", &stageStart, nil, len(results), 0)

	outputFile, err = ExportResults(runID, spec.Export, results, deps.Output, logger)
	if err != nil {
		return nil, "", fmt.Errorf("export failed: %w", err)
	}
	stageEnd = tracker.EndStage("export", len(results), 0)
	store.SaveStageProgress(runID, "export", "completed", &stageStart, &stageEnd, len(results), len(results))

	tracker.Finish("completed")
	store.UpdateRunStatus(runID, "completed")

	metrics := tracker.Snapshot()
	logger.Info("run completed",
		zap.Int("generated", metrics.Generated),
		zap.Int("accepted", metrics.Accepted),
		zap.Int("rejected", metrics.Rejected),
		zap.Duration("took", metrics.ProcessingTime),
		zap.String("output", outputFile))

	return results, outputFile, nil
}

// screenCandidates drops expressions that cannot possibly pass the
// platform check, so no remote call is spent on them.
func screenCandidates(alphas []string, logger *zap.Logger) []string {
	kept := make([]string, 0, len(alphas))
	for _, alpha := range alphas {
		if !utils.LooksLikeAlpha(alpha) {
			logger.Warn("dropping malformed candidate", zap.String("expression", alpha))
			continue
		}
		kept = append(kept, alpha)
	}
	return kept
}
