package scoreschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed score_response.schema.json
var scoreResponseSchemaJSON string

// ScoreResponse is the structural shape a scoring model must return.
// Numeric bounds and reasoning lengths are checked by the caller: the
// schema rejects malformed shapes, not weak content.
type ScoreResponse struct {
	ActivityScore        float64 `json:"activity_score"`
	ReproducibilityScore float64 `json:"reproducibility_score"`
	LicenseScore         float64 `json:"license_score"`
	NoveltyScore         float64 `json:"novelty_score"`
	RelevanceScore       float64 `json:"relevance_score"`

	ActivityReasoning        string `json:"activity_reasoning"`
	ReproducibilityReasoning string `json:"reproducibility_reasoning"`
	LicenseReasoning         string `json:"license_reasoning"`
	NoveltyReasoning         string `json:"novelty_reasoning"`
	RelevanceReasoning       string `json:"relevance_reasoning"`
	OverallReasoning         string `json:"overall_reasoning"`

	BackendRelevance            *float64 `json:"backend_relevance,omitempty"`
	BackendRelevanceReasoning   string   `json:"backend_relevance_reasoning,omitempty"`
	BackendEngineering          *float64 `json:"backend_engineering,omitempty"`
	BackendEngineeringReasoning string   `json:"backend_engineering_reasoning,omitempty"`

	TaskDomain  string   `json:"task_domain"`
	Metrics     []string `json:"metrics,omitempty"`
	Baselines   []string `json:"baselines,omitempty"`
	Institution string   `json:"institution,omitempty"`
	DatasetSize string   `json:"dataset_size,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateScorePayload checks a raw scoring response against the embedded
// schema and decodes it. Trailing JSON content is rejected.
func ValidateScorePayload(payload json.RawMessage) (*ScoreResponse, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var resp ScoreResponse
	if err := json.Unmarshal(normalized, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	return &resp, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("score_response.schema.json", strings.NewReader(scoreResponseSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("score_response.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}
