package pipeline

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/snpixel/worldquant/internal/model"
	"github.com/snpixel/worldquant/internal/store"
	"github.com/snpixel/worldquant/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCatalog struct {
	fields    []model.DataField
	operators []model.Operator
	err       error
	datasets  []string
}

func (f *fakeCatalog) GetDataFields(ctx context.Context, datasets []string) ([]model.DataField, error) {
	f.datasets = datasets
	return f.fields, f.err
}

func (f *fakeCatalog) GetOperators(ctx context.Context) ([]model.Operator, error) {
	return f.operators, f.err
}

type acceptAllChecker struct{}

func (acceptAllChecker) CheckExpression(ctx context.Context, expression string) (*model.CheckOutcome, error) {
	return &model.CheckOutcome{Status: model.CheckStatusValid}, nil
}

func testDeps(t *testing.T, catalog CatalogProvider) Deps {
	t.Helper()
	require.NoError(t, store.InitDB(":memory:"))
	return Deps{
		Catalog: catalog,
		Checker: acceptAllChecker{},
		Output:  utils.NewOutputManager(t.TempDir()),
		Rand:    rand.New(rand.NewSource(21)),
	}
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		fields: []model.DataField{
			{ID: "close"}, {ID: "open"}, {ID: "volume"}, {ID: "high"}, {ID: "low"},
		},
		operators: []model.Operator{
			{Name: "ts_mean", Category: "Time Series"},
			{Name: "rank", Category: "Cross Sectional"},
		},
	}
}

func TestRunHappyPath(t *testing.T) {
	deps := testDeps(t, testCatalog())

	spec := model.GenerationRunSpec{Count: 8, Mode: "creative", Optimize: true}
	require.NoError(t, store.SaveRun("run-1", spec))

	results, outputFile, err := Run(context.Background(), "run-1", spec, deps)
	require.NoError(t, err)
	assert.Len(t, results, 8)
	assert.Equal(t, filepath.Ext(outputFile), ".json")

	run, err := store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", run["status"])

	stored, err := store.GetRunAlphas("run-1")
	require.NoError(t, err)
	require.Len(t, stored, 8)
	for i, alpha := range stored {
		assert.Equal(t, results[i].Expression, alpha.Expression)
	}
}

func TestRunUnknownModeFails(t *testing.T) {
	deps := testDeps(t, testCatalog())

	spec := model.GenerationRunSpec{Count: 3, Mode: "turbo"}
	require.NoError(t, store.SaveRun("run-2", spec))

	_, _, err := Run(context.Background(), "run-2", spec, deps)
	require.Error(t, err)

	run, err := store.GetRun("run-2")
	require.NoError(t, err)
	assert.Equal(t, "failed", run["status"])

	errs, err := store.GetRunErrors("run-2")
	require.NoError(t, err)
	require.NotEmpty(t, errs)
}

func TestRunCatalogFailureIsTerminal(t *testing.T) {
	deps := testDeps(t, &fakeCatalog{err: errors.New("platform unreachable")})

	spec := model.GenerationRunSpec{Count: 3, Mode: "basic"}
	require.NoError(t, store.SaveRun("run-3", spec))

	_, _, err := Run(context.Background(), "run-3", spec, deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "platform unreachable")
}

func TestRunPassesDatasetsToCatalog(t *testing.T) {
	catalog := testCatalog()
	deps := testDeps(t, catalog)

	spec := model.GenerationRunSpec{Count: 2, Mode: "basic", Datasets: []string{"model16", "news12"}}
	require.NoError(t, store.SaveRun("run-5", spec))

	_, _, err := Run(context.Background(), "run-5", spec, deps)
	require.NoError(t, err)
	assert.Equal(t, []string{"model16", "news12"}, catalog.datasets)
}

func TestScreenCandidates(t *testing.T) {
	in := []string{
		"rank(close)",
		"zzzz",
		"rank(open",
		"ts_mean(volume, 20)",
	}
	out := screenCandidates(in, zap.NewNop())
	assert.Equal(t, []string{"rank(close)", "ts_mean(volume, 20)"}, out)
}

func TestRunZeroCount(t *testing.T) {
	deps := testDeps(t, testCatalog())

	spec := model.GenerationRunSpec{Count: 0, Mode: "basic"}
	require.NoError(t, store.SaveRun("run-4", spec))

	results, _, err := Run(context.Background(), "run-4", spec, deps)
	require.NoError(t, err)
	assert.Empty(t, results)
}
