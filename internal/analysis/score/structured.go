package score

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"shantu/internal/pkg/jsonutil"
	"shantu/internal/types"
)

// ErrStructuredInvalid wraps every reason a structured payload is rejected.
var ErrStructuredInvalid = errors.New("score: invalid structured scores")

// StructuredFenceTag is the info string of the fenced block generators embed in the report.
const StructuredFenceTag = "scores"

//go:embed schema/scores.schema.json
var scoresSchemaSource string

var scoresSchema = mustCompileSchema("scores.schema.json", scoresSchemaSource)

func mustCompileSchema(name, source string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(source)); err != nil {
		panic(fmt.Sprintf("score: add schema %s: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("score: compile schema %s: %v", name, err))
	}
	return schema
}

// DecodeStructured parses a generator-supplied payload such as
//
//	{"kind":"face","scores":[{"label":"Life Palace","score":85}]}
//
// Labels may be canonical or aliases; the result is in vocabulary order. When a label repeats
// the first entry wins. An unknown label or a kind mismatch rejects the whole payload.
func DecodeStructured(raw string, kind types.ReportKind) (Result, error) {
	v, ok := lookupVocabulary(kind)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Result{}, fmt.Errorf("%w: empty payload", ErrStructuredInvalid)
	}
	if !gjson.Valid(raw) {
		// 容忍模型在 JSON 前后带说明文字
		obj, found := jsonutil.ExtractObject(raw)
		if !found || !gjson.Valid(obj) {
			return Result{}, fmt.Errorf("%w: malformed json", ErrStructuredInvalid)
		}
		raw = obj
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStructuredInvalid, err)
	}
	if err := scoresSchema.Validate(doc); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStructuredInvalid, err)
	}

	parsed := gjson.Parse(raw)
	if declared := strings.TrimSpace(parsed.Get("kind").String()); declared != "" {
		dk, err := types.ParseReportKind(declared)
		if err != nil || dk != kind {
			return Result{}, fmt.Errorf("%w: payload kind %q does not match %q", ErrStructuredInvalid, declared, kind)
		}
	}

	values := make([]int, len(v.terms))
	seen := make([]bool, len(v.terms))
	var walkErr error
	parsed.Get("scores").ForEach(func(_, item gjson.Result) bool {
		name := item.Get("label").String()
		_, idx, ok := v.canonical(name)
		if !ok {
			walkErr = fmt.Errorf("%w: unknown %s label %q", ErrStructuredInvalid, kind, name)
			return false
		}
		if !seen[idx] {
			seen[idx] = true
			values[idx] = int(item.Get("score").Int())
		}
		return true
	})
	if walkErr != nil {
		return Result{}, walkErr
	}

	var set types.ScoreSet
	for i, t := range v.terms {
		if seen[i] {
			set.Append(t.label, values[i])
		}
	}
	return Result{Kind: kind, ScoreSet: set, Source: SourceStructured}, nil
}

// Resolution is the outcome of Resolve; StructuredErr explains why a supplied or embedded
// structured payload was ignored.
type Resolution struct {
	Result
	StructuredErr error `json:"-"`
}

// Resolve prefers structured scores and only then falls back to mining the prose.
// structured may be empty, in which case a ```scores fenced block inside text is tried.
// The returned error is reserved for an unknown kind.
func Resolve(text, structured string, kind types.ReportKind) (Resolution, error) {
	v, ok := lookupVocabulary(kind)
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
	payload := strings.TrimSpace(structured)
	if payload == "" {
		if block, found := jsonutil.ExtractFenced(text, StructuredFenceTag); found {
			payload = block
		}
	}
	var res Resolution
	if payload != "" {
		decoded, err := DecodeStructured(payload, kind)
		if err == nil {
			res.Result = decoded
			return res, nil
		}
		res.StructuredErr = err
	}
	res.Result = v.extract(text)
	return res, nil
}
