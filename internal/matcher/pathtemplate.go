package matcher

import "strings"

// PathTemplateMatches reports whether path matches a template containing
// "{name}" segments. Segment counts must be equal; a "{name}" segment
// matches any single non-empty segment (§4.5 HTTP legacy path normalization).
func PathTemplateMatches(template, path string) bool {
	tSegs := splitSegments(NormalizePath(template))
	pSegs := splitSegments(NormalizePath(path))
	if len(tSegs) != len(pSegs) {
		return false
	}
	for i, t := range tSegs {
		if strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}") {
			if pSegs[i] == "" {
				return false
			}
			continue
		}
		if t != pSegs[i] {
			return false
		}
	}
	return true
}

func splitSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// PathTemplateParams extracts the {name} -> value bindings from a matching
// template/path pair. Returns nil if the template doesn't match.
func PathTemplateParams(template, path string) map[string]string {
	tSegs := splitSegments(NormalizePath(template))
	pSegs := splitSegments(NormalizePath(path))
	if len(tSegs) != len(pSegs) {
		return nil
	}
	params := make(map[string]string)
	for i, t := range tSegs {
		if strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}") {
			name := strings.TrimSuffix(strings.TrimPrefix(t, "{"), "}")
			params[name] = pSegs[i]
			continue
		}
		if t != pSegs[i] {
			return nil
		}
	}
	return params
}
