package pipeline

import (
	"fmt"
	"regexp"
)

// templateVarRegex matches {{field}} placeholders, mirroring the teacher's
// prompt-template idiom (internal/resolver.go).
var templateVarRegex = regexp.MustCompile(`\{\{(\w+)\}\}`)

// renderConfig renders every string leaf of config against env (§4.4
// "Executor"). Non-string leaves pass through unchanged; nested maps and
// slices render recursively; a placeholder with no matching key in env
// renders as empty string rather than failing the step.
func renderConfig(config map[string]interface{}, env map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(config))
	for k, v := range config {
		out[k] = renderValue(v, env)
	}
	return out
}

func renderValue(v interface{}, env map[string]interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return renderString(val, env)
	case map[string]interface{}:
		return renderConfig(val, env)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = renderValue(item, env)
		}
		return out
	default:
		return v
	}
}

func renderString(s string, env map[string]interface{}) string {
	result := templateVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		name := templateVarRegex.FindStringSubmatch(match)[1]
		val, ok := env[name]
		if !ok {
			return ""
		}
		return fmt.Sprintf("%v", val)
	})
	return result
}

// buildTemplateEnv flattens { workspace_id, org_id, event_type } ∪
// event.payload into the single lookup map renderString consults (§4.4).
func buildTemplateEnv(workspaceID, orgID, eventType string, payload map[string]interface{}) map[string]interface{} {
	env := make(map[string]interface{}, len(payload)+3)
	for k, v := range payload {
		env[k] = v
	}
	env["workspace_id"] = workspaceID
	env["org_id"] = orgID
	env["event_type"] = eventType
	return env
}
