// internal/service/creative/infrastructure/rule/cel_approval.go
package rule

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"adforge/internal/service/creative/domain"
)

// DefaultApprovalThreshold is the accuracy floor an "approved" verdict must
// clear before it is honored, used when no threshold is configured.
const DefaultApprovalThreshold = 0.8

// ThresholdExpression renders the standard gate for a configured accuracy
// threshold: product and text accuracy must both meet it.
func ThresholdExpression(threshold float64) string {
	return fmt.Sprintf("product_accuracy >= %v && text_accuracy >= %v", threshold, threshold)
}

// CELApprovalRule is the port.ApprovalRule implementation. The gate is a CEL
// expression over the four score fields, compiled once at startup, so
// operators can tighten or loosen it from config without a rebuild.
type CELApprovalRule struct {
	program cel.Program
}

func NewCELApprovalRule(expression string) (*CELApprovalRule, error) {
	if expression == "" {
		expression = ThresholdExpression(DefaultApprovalThreshold)
	}
	env, err := cel.NewEnv(
		cel.Variable("product_accuracy", cel.DoubleType),
		cel.Variable("text_accuracy", cel.DoubleType),
		cel.Variable("layout_accuracy", cel.DoubleType),
		cel.Variable("overall_quality", cel.DoubleType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "build cel environment")
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "compile approval rule %q", expression)
	}
	if ast.OutputType() != cel.BoolType {
		return nil, errors.Errorf("approval rule %q must evaluate to bool, got %s", expression, ast.OutputType())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "build cel program")
	}
	return &CELApprovalRule{program: program}, nil
}

func (r *CELApprovalRule) Passes(review *domain.ReviewResult) (bool, error) {
	out, _, err := r.program.Eval(map[string]interface{}{
		"product_accuracy": review.ProductAccuracy,
		"text_accuracy":    review.TextAccuracy,
		"layout_accuracy":  review.LayoutAccuracy,
		"overall_quality":  review.OverallQuality,
	})
	if err != nil {
		return false, errors.Wrap(err, "evaluate approval rule")
	}
	passed, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("approval rule returned %T, want bool", out.Value())
	}
	return passed, nil
}
