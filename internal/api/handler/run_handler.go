package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/snpixel/worldquant/internal/model"
	"github.com/snpixel/worldquant/internal/pipeline"
	"github.com/snpixel/worldquant/internal/store"
	"github.com/snpixel/worldquant/pkg/utils"
)

// deps are the run collaborators shared by all handlers, set once at
// server start.
var deps pipeline.Deps

// Init wires the handlers to their pipeline collaborators.
func Init(d pipeline.Deps) {
	deps = d
}

// CreateRun creates a new alpha generation run
// @Summary Create a new generation run
// @Description Create and start a new alpha generation run with the provided configuration
// @Tags runs
// @Accept json
// @Produce json
// @Param run body model.GenerationRunSpec true "Run configuration"
// @Success 200 {object} map[string]interface{} "Run created successfully"
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [post]
func CreateRun(w http.ResponseWriter, r *http.Request) {
	var spec model.GenerationRunSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	if spec.Count < 0 {
		http.Error(w, "Count must be non-negative", http.StatusBadRequest)
		return
	}
	if spec.Mode == "" {
		spec.Mode = "creative"
	}

	runID := uuid.New().String()

	if err := store.SaveRun(runID, spec); err != nil {
		http.Error(w, "Failed to save run", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), utils.ParseDuration(spec.Timeout))
	go func() {
		defer cancel()
		if _, _, err := pipeline.Run(ctx, runID, spec, deps); err != nil {
			store.SaveRunError(runID, err)
		}
	}()

	resp := map[string]interface{}{
		"message":   "Run created successfully!",
		"runID":     runID,
		"status":    "pending",
		"createdAt": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListRuns retrieves all generation runs
// @Summary List all runs
// @Description Get a list of all generation runs with their current status
// @Tags runs
// @Accept json
// @Produce json
// @Success 200 {array} map[string]interface{} "List of runs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [get]
func ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListRuns()
	if err != nil {
		http.Error(w, "Failed to fetch runs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

// GetRun retrieves a specific generation run
// @Summary Get run
// @Description Retrieve details of a specific generation run
// @Tags runs
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run details"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id} [get]
func GetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(r.URL.Path, "")
	if !ok {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return
	}

	run, err := store.GetRun(runID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

// GetRunAlphas retrieves the accepted alphas of a run
// @Summary Get run alphas
// @Description Retrieve the accepted alpha expressions produced by a run
// @Tags runs
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Accepted alphas"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs/{id}/alphas [get]
func GetRunAlphas(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(r.URL.Path, "/alphas")
	if !ok {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return
	}

	alphas, err := store.GetRunAlphas(runID)
	if err != nil {
		http.Error(w, "Failed to retrieve alphas", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id": runID,
		"alphas": alphas,
		"count":  len(alphas),
		"files":  runOutputFiles(runID),
	})
}

// DownloadFile streams one of a run's exported output files
// @Summary Download a run output file
// @Description Download an exported alphas file produced by a run
// @Tags runs
// @Produce octet-stream
// @Param runID path string true "Run ID"
// @Param file path string true "File name"
// @Success 200 {file} binary "File content"
// @Failure 400 {object} map[string]interface{} "Invalid download path"
// @Failure 404 {object} map[string]interface{} "File not found"
// @Router /download/{runID}/{file} [get]
func DownloadFile(w http.ResponseWriter, r *http.Request) {
	runID, fileName, ok := downloadPathParts(r.URL.Path)
	if !ok {
		http.Error(w, "Run ID and file name are required", http.StatusBadRequest)
		return
	}

	path := filepath.Join(deps.Output.BaseOutputDir, runID, filepath.Base(fileName))
	if _, err := os.Stat(path); err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(fileName)))
	http.ServeFile(w, r, path)
}

// GetRunErrors retrieves errors for a run
// @Summary Get run errors
// @Description Retrieve all errors that occurred during a generation run
// @Tags runs
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run errors"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs/{id}/errors [get]
func GetRunErrors(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(r.URL.Path, "/errors")
	if !ok {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return
	}

	errs, err := store.GetRunErrors(runID)
	if err != nil {
		http.Error(w, "Failed to retrieve errors", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id": runID,
		"errors": errs,
		"count":  len(errs),
	})
}

// runOutputFiles lists a run's exported files with their download URLs.
// A run with no output directory yet simply has no files.
func runOutputFiles(runID string) []map[string]interface{} {
	entries, err := os.ReadDir(filepath.Join(deps.Output.BaseOutputDir, runID))
	if err != nil {
		return nil
	}

	files := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		size, _ := deps.Output.FileSize(filepath.Join(deps.Output.BaseOutputDir, runID, entry.Name()))
		files = append(files, map[string]interface{}{
			"name": entry.Name(),
			"size": size,
			"url":  deps.Output.DownloadURL(runID, entry.Name()),
		})
	}
	return files
}

// downloadPathParts extracts the run ID and file name from
// /api/v1/download/{runID}/{file}.
func downloadPathParts(path string) (string, string, bool) {
	prefix := "/api/v1/download/"
	if !strings.HasPrefix(path, prefix) {
		return "", "", false
	}
	parts := strings.Split(path[len(prefix):], "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// runIDFromPath extracts the run ID from /api/v1/runs/{id}{suffix}.
func runIDFromPath(path, suffix string) (string, bool) {
	prefix := "/api/v1/runs/"
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return "", false
	}
	runID := path[len(prefix) : len(path)-len(suffix)]
	if runID == "" || strings.Contains(runID, "/") {
		return "", false
	}
	return runID, true
}
