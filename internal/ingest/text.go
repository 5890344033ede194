package ingest

import (
	"encoding/json"
	"fmt"
)

// DecodeText validates a JSON document and counts its records: one for an object,
// the element count for an array. Any other root value is rejected.
func DecodeText(job FileJob, content []byte) Result {
	var root any
	if err := json.Unmarshal(content, &root); err != nil {
		return Failed(job, fmt.Errorf("%w: %v", ErrMalformedContent, err))
	}

	switch value := root.(type) {
	case []any:
		return Ok(job, string(content), len(value), false)
	case map[string]any:
		return Ok(job, string(content), 1, false)
	default:
		return Failed(job, fmt.Errorf("%w: root value is %T", ErrMalformedContent, root))
	}
}
