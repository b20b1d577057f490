package pipeline

import (
	"encoding/json"
	"strings"

	t "impactify/internal/types"
)

// CoerceImpactReport salvages a loosely structured report payload. The model
// sometimes emits near-miss keys ("Needs-Update", "Impact Description") or
// flattened shapes; two deterministic stages run before giving up: key
// normalization, then field-level fallback from common alias keys. Returns
// nil when the text is not JSON at all.
func CoerceImpactReport(raw, path string) *t.ImpactReport {
	var data any
	if err := decodeJSON(raw, &data); err != nil {
		return nil
	}
	normalized, ok := normalizeKeys(data).(map[string]any)
	if !ok {
		return nil
	}

	report := &t.ImpactReport{Path: path}
	if p, _ := normalized["path"].(string); p != "" {
		report.Path = p
	}

	analysis, _ := normalized["analysis"].(map[string]any)
	report.Confidence = coerceConfidence(firstString(normalized["confidence"], analysis["confidence"]))
	report.Analysis = coerceAnalysis(analysis)
	report.Diagnosis = coerceDiagnosis(normalized)
	report.Recommendations = coerceRecommendations(normalized["recommendations"])

	if related, ok := coerceBool(normalized["related"]); ok {
		report.Related = related
	} else {
		report.Related = report.Diagnosis.NeedsUpdate || report.Analysis.Impact == t.ImpactDirect
	}
	return report
}

// normalizeKeys rewrites every map key to trimmed, lower-cased,
// underscore-joined form ("Needs-Update" -> "needs_update").
func normalizeKeys(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			cleaned := strings.NewReplacer("-", " ", ".", " ", "/", " ").Replace(strings.TrimSpace(key))
			cleaned = strings.Join(strings.Fields(strings.ToLower(cleaned)), "_")
			out[cleaned] = normalizeKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeKeys(item)
		}
		return out
	default:
		return value
	}
}

func coerceAnalysis(src map[string]any) t.ImpactAnalysis {
	out := t.ImpactAnalysis{Impact: t.ImpactDirect}

	switch impact := src["impact"].(type) {
	case bool:
		if !impact {
			out.Impact = t.ImpactIndirect
		}
	case string:
		switch strings.ToLower(impact) {
		case t.ImpactDirect:
			out.Impact = t.ImpactDirect
		case t.ImpactIndirect, "inderect":
			out.Impact = t.ImpactIndirect
		default:
			out.Impact = impactFromFlag(src)
		}
	default:
		out.Impact = impactFromFlag(src)
	}

	out.ImpactDescription = firstString(
		src["impact_description"], src["details"], src["summary"], src["explanation"])
	return out
}

func impactFromFlag(src map[string]any) string {
	for _, key := range []string{"directly_impacted", "is_direct"} {
		if flag, ok := coerceBool(src[key]); ok {
			if flag {
				return t.ImpactDirect
			}
			return t.ImpactIndirect
		}
	}
	return t.ImpactDirect
}

func coerceDiagnosis(normalized map[string]any) t.UpdateDiagnosis {
	src, _ := normalized["diagnosis"].(map[string]any)

	needsUpdate := true
	for _, candidate := range []any{
		src["needs_update"], src["needs_updates"], src["requires_update"], normalized["needs_update"],
	} {
		if b, ok := coerceBool(candidate); ok {
			needsUpdate = b
			break
		}
	}
	return t.UpdateDiagnosis{
		NeedsUpdate:     needsUpdate,
		UpdateRationale: firstString(src["update_rationale"], src["explanation"], src["reason"]),
	}
}

func coerceRecommendations(src any) t.FixRecommendation {
	var actions []string
	var implementation string

	switch v := src.(type) {
	case map[string]any:
		for _, key := range []string{"recommended_actions", "actions", "steps"} {
			if list := toStringList(v[key]); len(list) > 0 {
				actions = list
				break
			}
		}
		implementation = firstString(v["implementation_approach"], v["implementation"])
	case []any:
		actions = toStringList(v)
	case string:
		actions = []string{v}
	}

	out := make([]string, 0, len(actions)+1)
	for _, a := range actions {
		if s := strings.TrimSpace(a); s != "" {
			out = append(out, s)
		}
	}
	if s := strings.TrimSpace(implementation); s != "" {
		out = append(out, s)
	}
	return t.FixRecommendation{RecommendedActions: out}
}

func coerceConfidence(v string) string {
	switch strings.ToLower(v) {
	case t.ConfidenceHigh, t.ConfidenceMedium, t.ConfidenceLow:
		return strings.ToLower(v)
	default:
		return t.ConfidenceMedium
	}
}

func coerceBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "y", "1":
			return true, true
		case "false", "no", "n", "0":
			return false, true
		}
	}
	return false, false
}

func firstString(candidates ...any) string {
	for _, c := range candidates {
		if s, ok := c.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func toStringList(v any) []string {
	switch list := v.(type) {
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else if item != nil {
				b, _ := json.Marshal(item)
				out = append(out, string(b))
			}
		}
		return out
	case string:
		if list == "" {
			return nil
		}
		return []string{list}
	default:
		return nil
	}
}
