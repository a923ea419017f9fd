package scenario

import (
	"github.com/expr-lang/expr"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// evalCondition evaluates a transition's condition_expression against the
// union of context_map and the instance's state_data (§4.3 step 3). An
// empty expression is always satisfied.
func evalCondition(expression string, contextMap, stateData map[string]interface{}) (bool, error) {
	if expression == "" {
		return true, nil
	}

	env := make(map[string]interface{}, len(contextMap)+len(stateData))
	for k, v := range stateData {
		env[k] = v
	}
	for k, v := range contextMap {
		env[k] = v
	}

	program, err := expr.Compile(expression, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return false, model.NewError(model.ErrValidation, "condition error: %v", err).WithCode("condition_compile_error")
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, model.NewError(model.ErrValidation, "condition error: %v", err).WithCode("condition_eval_error")
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, model.NewError(model.ErrValidation, "condition %q did not evaluate to a boolean", expression).WithCode("condition_eval_error")
	}
	return ok, nil
}
