package engine

import (
	"context"

	"github.com/snpixel/worldquant/internal/model"
	"go.uber.org/zap"
)

// errTooShort is the fail-closed error for expressions under 5
// characters; no external check is made for those.
const errTooShort = "Alpha expression is too short"

// SyntaxChecker is the external syntax/semantic check capability. The
// call may block on I/O; any returned error is treated as an invalid
// outcome, never propagated past Validate.
type SyntaxChecker interface {
	CheckExpression(ctx context.Context, expression string) (*model.CheckOutcome, error)
}

// Validator classifies expressions as acceptable or not via the check
// capability and filters out the rejects.
type Validator struct {
	checker SyntaxChecker
	logger  *zap.Logger
}

// NewValidator creates a validator around a check capability. A nil
// logger falls back to a no-op logger.
func NewValidator(checker SyntaxChecker, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{checker: checker, logger: logger}
}

// ValidateBatch validates each expression in order and returns only
// the accepted ones, preserving their relative input order.
func (v *Validator) ValidateBatch(ctx context.Context, alphas []string) []model.ValidationResult {
	v.logger.Info("validating batch", zap.Int("count", len(alphas)))

	valid := make([]model.ValidationResult, 0, len(alphas))
	for _, alpha := range alphas {
		if result := v.Validate(ctx, alpha); result.IsValid {
			valid = append(valid, result)
		}
	}

	v.logger.Info("validation complete",
		zap.Int("valid", len(valid)),
		zap.Int("total", len(alphas)))
	return valid
}

// Validate classifies a single expression. Every failure mode is
// captured into the result value.
func (v *Validator) Validate(ctx context.Context, alpha string) model.ValidationResult {
	if len(alpha) < 5 {
		return model.ValidationResult{
			Expression: alpha,
			IsValid:    false,
			Error:      errTooShort,
			Details:    map[string]interface{}{},
		}
	}

	outcome, err := v.checker.CheckExpression(ctx, alpha)
	if err != nil {
		v.logger.Error("expression check failed",
			zap.String("expression", alpha),
			zap.Error(err))
		return model.ValidationResult{
			Expression: alpha,
			IsValid:    false,
			Error:      err.Error(),
			Details:    map[string]interface{}{},
		}
	}

	if outcome == nil || outcome.Status != model.CheckStatusValid {
		result := model.ValidationResult{
			Expression: alpha,
			IsValid:    false,
			Error:      "Unknown error",
			Details:    map[string]interface{}{},
		}
		if outcome != nil {
			if outcome.Error != "" {
				result.Error = outcome.Error
			}
			if outcome.Details != nil {
				result.Details = outcome.Details
			}
		}
		return result
	}

	details := outcome.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	return model.ValidationResult{
		Expression: alpha,
		IsValid:    true,
		Details:    details,
	}
}
