package display

import (
	"bytes"
	"testing"

	"github.com/snpixel/worldquant/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestShowAlphasFormatsExpressions(t *testing.T) {
	var buf bytes.Buffer
	alphas := []model.ValidationResult{
		{Expression: "rank(ts_mean(close, 5))", IsValid: true},
	}

	ShowAlphas(&buf, alphas, "/tmp/out/alphas.json")

	out := buf.String()
	assert.Contains(t, out, "Generated 1 valid alpha expressions")
	assert.Contains(t, out, "/tmp/out/alphas.json")
	assert.Contains(t, out, "rank(ts_mean(\n  close, 5\n  ))")
	assert.Contains(t, out, "Instructions for manual submission")
}

func TestShowAlphasEmpty(t *testing.T) {
	var buf bytes.Buffer
	ShowAlphas(&buf, nil, "")
	assert.Contains(t, buf.String(), "NO VALID ALPHAS GENERATED")
}
