package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/snpixel/worldquant/internal/model"
	"github.com/snpixel/worldquant/internal/store"
	"github.com/snpixel/worldquant/pkg/utils"
	"go.uber.org/zap"
)

// ExportResults writes the accepted alphas of a run to the run's output
// directory and, when requested, into the alphas table. Returns the
// path of the primary output file. A nil export spec falls back to a
// timestamped JSON file plus the database insert.
func ExportResults(runID string, exportSpec *model.Export, results []model.ValidationResult, om *utils.OutputManager, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fileName := ""
	format := "json"
	toDB := true
	if exportSpec != nil {
		fileName = exportSpec.File
		if exportSpec.Format != "" {
			format = strings.ToLower(exportSpec.Format)
		}
		toDB = exportSpec.DB
	}
	if fileName == "" {
		fileName = fmt.Sprintf("alphas_%s.%s", time.Now().Format("20060102_150405"), format)
	}

	path, err := om.OutputFilePath(runID, fileName)
	if err != nil {
		return "", err
	}

	switch format {
	case "csv":
		err = writeCSV(path, results)
	case "json":
		err = writeJSON(path, results)
	default:
		return "", fmt.Errorf("unsupported export format: %s", format)
	}
	if err != nil {
		return "", err
	}

	if toDB {
		if err := store.SaveAlphas(runID, results); err != nil {
			return "", fmt.Errorf("failed to persist alphas: %w", err)
		}
	}

	logger.Info("exported alphas",
		zap.Int("count", len(results)),
		zap.String("path", path),
		zap.String("format", format),
		zap.Bool("db", toDB))
	return path, nil
}

func writeJSON(path string, results []model.ValidationResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func writeCSV(path string, results []model.ValidationResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"expression", "is_valid"}); err != nil {
		return err
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Expression, fmt.Sprintf("%t", result.IsValid)}); err != nil {
			return err
		}
	}
	return writer.Error()
}
