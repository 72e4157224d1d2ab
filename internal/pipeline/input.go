package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/calderbuild/BenchScope/internal/model"
)

// LoadCandidates reads raw candidates from a JSON file. Both a top-level
// array and line-delimited objects are accepted, so collector exports can
// be fed in either shape.
func LoadCandidates(path string) ([]model.RawCandidate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidates file: %w", err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var cands []model.RawCandidate
		if err := json.Unmarshal(trimmed, &cands); err != nil {
			return nil, fmt.Errorf("decode candidates array: %w", err)
		}
		return cands, nil
	}

	var cands []model.RawCandidate
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var cand model.RawCandidate
		if err := json.Unmarshal(text, &cand); err != nil {
			return nil, fmt.Errorf("decode candidate on line %d: %w", line, err)
		}
		cands = append(cands, cand)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan candidates file: %w", err)
	}
	return cands, nil
}
