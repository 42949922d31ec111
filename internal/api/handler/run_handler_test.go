package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/snpixel/worldquant/internal/pipeline"
	"github.com/snpixel/worldquant/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestDeps(t *testing.T) string {
	t.Helper()
	outputDir := t.TempDir()
	Init(pipeline.Deps{Output: utils.NewOutputManager(outputDir)})
	return outputDir
}

func writeRunFile(t *testing.T, outputDir, runID, name, content string) {
	t.Helper()
	runDir := filepath.Join(outputDir, runID)
	require.NoError(t, os.MkdirAll(runDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(runDir, name), []byte(content), 0644))
}

func TestDownloadFile(t *testing.T) {
	outputDir := initTestDeps(t)
	writeRunFile(t, outputDir, "run-1", "alphas.json", `[{"expression":"rank(close)"}]`)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/download/run-1/alphas.json", nil)
	DownloadFile(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rank(close)")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "alphas.json")
}

func TestDownloadFileNotFound(t *testing.T) {
	initTestDeps(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/download/run-1/missing.json", nil)
	DownloadFile(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadFileBadPath(t *testing.T) {
	initTestDeps(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/download/run-1", nil)
	DownloadFile(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadPathParts(t *testing.T) {
	runID, file, ok := downloadPathParts("/api/v1/download/run-1/alphas.json")
	require.True(t, ok)
	assert.Equal(t, "run-1", runID)
	assert.Equal(t, "alphas.json", file)

	_, _, ok = downloadPathParts("/api/v1/download/run-1")
	assert.False(t, ok)
	_, _, ok = downloadPathParts("/api/v1/download/run-1/a/b")
	assert.False(t, ok)
	_, _, ok = downloadPathParts("/api/v1/runs/run-1")
	assert.False(t, ok)
}

func TestRunOutputFiles(t *testing.T) {
	outputDir := initTestDeps(t)
	writeRunFile(t, outputDir, "run-2", "alphas.json", "[]")
	writeRunFile(t, outputDir, "run-2", "alphas.csv", "expression,is_valid\n")

	files := runOutputFiles("run-2")
	require.Len(t, files, 2)
	for _, file := range files {
		assert.NotEmpty(t, file["name"])
		assert.Greater(t, file["size"].(int64), int64(0))
		assert.Contains(t, file["url"], "/api/v1/download/run-2/")
	}

	assert.Empty(t, runOutputFiles("no-such-run"))
}
