package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/snpixel/worldquant/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

var db *sql.DB

// InitDB opens the run database and creates the schema if needed.
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	runTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		spec TEXT,
		status TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);
	`
	errorTable := `
	CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`
	stageTable := `
	CREATE TABLE IF NOT EXISTS run_stages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		stage TEXT,
		status TEXT,
		in_count INTEGER,
		out_count INTEGER,
		started_at DATETIME,
		finished_at DATETIME
	);
	`
	alphaTable := `
	CREATE TABLE IF NOT EXISTS alphas (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		expression TEXT,
		details TEXT,
		created_at DATETIME
	);
	`

	for _, ddl := range []string{runTable, errorTable, stageTable, alphaTable} {
		if _, err := db.Exec(ddl); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores a new generation run
func SaveRun(runID string, spec model.GenerationRunSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO runs (id, spec, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, specJSON, "pending", now, now)
	return err
}

// UpdateRunStatus updates a run's status
func UpdateRunStatus(runID string, status string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	return err
}

// SaveRunError records an error for a run
func SaveRunError(runID string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := db.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, err.Error(), now)
	return e
}

// SaveStageProgress records the start or completion of a run stage
func SaveStageProgress(runID, stage, status string, startedAt, finishedAt *time.Time, inCount, outCount int) error {
	_, err := db.Exec(`INSERT INTO run_stages (run_id, stage, status, in_count, out_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, stage, status, inCount, outCount, startedAt, finishedAt)
	return err
}

// SaveAlphas inserts the accepted alphas of a run
func SaveAlphas(runID string, results []model.ValidationResult) error {
	now := time.Now().UTC()
	for _, result := range results {
		detailsJSON, err := json.Marshal(result.Details)
		if err != nil {
			return err
		}
		if _, err := db.Exec(`INSERT INTO alphas (run_id, expression, details, created_at) VALUES (?, ?, ?, ?)`,
			runID, result.Expression, detailsJSON, now); err != nil {
			return err
		}
	}
	return nil
}

// ListRuns returns all runs with basic info
func ListRuns() ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT id, status, created_at, updated_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []map[string]interface{}
	for rows.Next() {
		var id, status string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, map[string]interface{}{
			"id":        id,
			"status":    status,
			"createdAt": createdAt,
			"updatedAt": updatedAt,
		})
	}
	return runs, rows.Err()
}

// GetRun fetches a run's full spec and status
func GetRun(runID string) (map[string]interface{}, error) {
	var specJSON string
	var status string
	var createdAt, updatedAt time.Time

	err := db.QueryRow(`SELECT spec, status, created_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&specJSON, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var spec model.GenerationRunSpec
	if err := json.Unmarshal([]byte(specJSON), &spec); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":        runID,
		"spec":      spec,
		"status":    status,
		"createdAt": createdAt,
		"updatedAt": updatedAt,
	}, nil
}

// GetRunAlphas returns the accepted alphas stored for a run
func GetRunAlphas(runID string) ([]model.ValidationResult, error) {
	rows, err := db.Query(`SELECT expression, details FROM alphas WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.ValidationResult
	for rows.Next() {
		var expression, detailsJSON string
		if err := rows.Scan(&expression, &detailsJSON); err != nil {
			return nil, err
		}
		details := map[string]interface{}{}
		if err := json.Unmarshal([]byte(detailsJSON), &details); err != nil {
			return nil, err
		}
		results = append(results, model.ValidationResult{
			Expression: expression,
			IsValid:    true,
			Details:    details,
		})
	}
	return results, rows.Err()
}

// GetRunErrors returns the errors recorded for a run
func GetRunErrors(runID string) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT error_message, created_at FROM run_errors WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var errs []map[string]interface{}
	for rows.Next() {
		var message string
		var createdAt time.Time
		if err := rows.Scan(&message, &createdAt); err != nil {
			return nil, err
		}
		errs = append(errs, map[string]interface{}{
			"error":     message,
			"createdAt": createdAt,
		})
	}
	return errs, rows.Err()
}
