// Package canonical turns a logical prompt configuration into a deterministic
// byte string and hash. Two semantically identical configurations must produce
// identical hashes regardless of dict key order, float representation, or line
// ending style in the source.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/promptwatch/promptwatch-engine/pkg/models"
)

// floatPrecision is the number of decimal places floats are rounded to before
// hashing. Avoids spurious hash drift from floating-point representation
// differences across languages and JSON libraries.
const floatPrecision = 4

var spaceRuns = regexp.MustCompile(`[ \t]+`)

// Canonicalize returns the canonical JSON serialization of a configuration and
// the hex-encoded SHA-256 of its UTF-8 bytes.
//
// The hash covers generation configuration only: prompt texts, model, locales,
// inference parameters, tool and response-format specs, and grounding profile
// identifiers. Tenant identifiers, template names, and analysis metadata are
// excluded so that analysis logic can evolve without invalidating templates.
func Canonicalize(cfg *models.PromptConfig) (string, string, error) {
	payload := map[string]any{
		"model_id":             strings.TrimSpace(cfg.ModelID),
		"user_prompt_template": NormalizeText(cfg.UserPromptTemplate),
	}

	if s := NormalizeText(cfg.SystemInstructions); s != "" {
		payload["system_instructions"] = s
	}
	if countries := NormalizeCountries(cfg.Countries); len(countries) > 0 {
		payload["countries"] = countries
	}
	if m := normalizeMap(cfg.InferenceParams); len(m) > 0 {
		payload["inference_params"] = m
	}
	if len(cfg.ToolsSpec) > 0 {
		// Tool ordering is semantically meaningful to some providers. The list
		// is never reordered; only its elements are normalized.
		tools := make([]any, len(cfg.ToolsSpec))
		for i, t := range cfg.ToolsSpec {
			tools[i] = normalizeMap(t)
		}
		payload["tools_spec"] = tools
	}
	if m := normalizeMap(cfg.ResponseFormat); len(m) > 0 {
		payload["response_format"] = m
	}
	if id := strings.TrimSpace(cfg.GroundingProfileID); id != "" {
		payload["grounding_profile_id"] = id
	}
	if id := strings.TrimSpace(cfg.GroundingSnapshotID); id != "" {
		payload["grounding_snapshot_id"] = id
	}
	if m := normalizeMap(cfg.RetrievalParams); len(m) > 0 {
		payload["retrieval_params"] = m
	}

	// json.Marshal sorts map keys and emits no insignificant whitespace, which
	// together with the normalization above fixes the byte representation.
	data, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("marshal canonical config: %w", err)
	}

	sum := sha256.Sum256(data)
	return string(data), hex.EncodeToString(sum[:]), nil
}

// HashPrompt returns the hex-encoded SHA-256 of a rendered prompt string.
// Stored alongside results so an altered payload can be detected later.
func HashPrompt(rendered string) string {
	sum := sha256.Sum256([]byte(rendered))
	return hex.EncodeToString(sum[:])
}

// NormalizeText converts all line endings to \n, collapses runs of spaces and
// tabs (never newlines) to a single space, and trims surrounding whitespace.
// Newlines are semantically significant: a one-line prompt and a three-line
// prompt with the same words must hash differently.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = spaceRuns.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// NormalizeCountries uppercases, trims, aliases UK to GB, deduplicates, and
// sorts the country set. Input order is irrelevant (set semantics).
func NormalizeCountries(countries []string) []string {
	seen := make(map[string]struct{}, len(countries))
	out := make([]string, 0, len(countries))
	for _, c := range countries {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if c == "UK" {
			c = "GB"
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// normalizeMap recursively normalizes a parameter map. Keys are sorted at
// serialization time by json.Marshal; this pass fixes the values: floats are
// rounded, nested structures walked, empty leaves dropped.
func normalizeMap(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		nv := normalizeValue(v)
		if nv == nil {
			continue
		}
		out[k] = nv
	}
	return out
}

// normalizeValue normalizes a single value. Numbers become fixed-precision
// json.Number literals so the emitted bytes do not depend on how the float was
// written (8.1 vs 8.10). Lists keep their order; maps recurse.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		m := normalizeMap(val)
		if len(m) == 0 {
			return nil
		}
		return m
	case []any:
		if len(val) == 0 {
			return nil
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case float64:
		return roundedNumber(val)
	case float32:
		return roundedNumber(float64(val))
	case int:
		return json.Number(strconv.Itoa(val))
	case int64:
		return json.Number(strconv.FormatInt(val, 10))
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return val
		}
		return roundedNumber(f)
	default:
		return val
	}
}

// roundedNumber rounds to floatPrecision decimal places and formats the result
// with the minimal digits needed, so 0.0 and 0.00 both serialize as "0".
func roundedNumber(f float64) json.Number {
	shift := math.Pow10(floatPrecision)
	r := math.Round(f*shift) / shift
	if r == 0 {
		// Avoid "-0" from rounding small negatives.
		r = 0
	}
	return json.Number(strconv.FormatFloat(r, 'f', -1, 64))
}
