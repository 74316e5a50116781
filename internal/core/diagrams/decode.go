package diagrams

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/markdave123-py/Lumen/internal/models"
)

// Tier records which decoder accepted a detector response.
type Tier int

const (
	TierStrict Tier = iota + 1
	TierTolerant
	TierMalformed
)

func (t Tier) String() string {
	switch t {
	case TierStrict:
		return "strict"
	case TierTolerant:
		return "tolerant"
	case TierMalformed:
		return "malformed"
	}
	return "unknown"
}

// Decoded is the outcome of the decode chain. Result is only meaningful
// when Tier is not TierMalformed; Err carries the last decoder's failure.
type Decoded struct {
	Tier   Tier
	Result DetectionResult
	Err    error
}

// DetectionResult is the normalized content of a detector poll response.
type DetectionResult struct {
	Status      string
	Message     string
	ObjectCount int
	Objects     []models.DetectedObject
}

// Running reports whether the detector is still working on the job.
func (r DetectionResult) Running() bool {
	switch strings.ToLower(strings.TrimSpace(r.Status)) {
	case "processing", "pending", "queued", "running", "in_progress", "started":
		return true
	}
	return false
}

// Decode runs the strict decoder and falls back to the tolerant one.
func Decode(body []byte) Decoded {
	if res, err := decodeStrict(body); err == nil {
		return Decoded{Tier: TierStrict, Result: res}
	}
	res, err := decodeTolerant(body)
	if err != nil {
		return Decoded{Tier: TierMalformed, Err: err}
	}
	return Decoded{Tier: TierTolerant, Result: res}
}

type strictObject struct {
	FileName *string `json:"filename"`
	Path     *string `json:"path"`
}

type strictResponse struct {
	Status          *string        `json:"status"`
	Message         *string        `json:"message"`
	ObjectCount     *int           `json:"object_count"`
	DetectedObjects []strictObject `json:"detected_objects"`
}

// decodeStrict requires every documented field with its documented type.
func decodeStrict(body []byte) (DetectionResult, error) {
	var raw strictResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&raw); err != nil {
		return DetectionResult{}, fmt.Errorf("strict decode: %w", err)
	}
	if dec.More() {
		return DetectionResult{}, errors.New("strict decode: trailing data")
	}

	switch {
	case raw.Status == nil:
		return DetectionResult{}, errors.New("strict decode: missing status")
	case raw.Message == nil:
		return DetectionResult{}, errors.New("strict decode: missing message")
	case raw.ObjectCount == nil:
		return DetectionResult{}, errors.New("strict decode: missing object_count")
	case raw.DetectedObjects == nil:
		return DetectionResult{}, errors.New("strict decode: missing detected_objects")
	}

	objects := make([]models.DetectedObject, 0, len(raw.DetectedObjects))
	for idx, o := range raw.DetectedObjects {
		if o.FileName == nil || o.Path == nil {
			return DetectionResult{}, fmt.Errorf("strict decode: detected_objects[%d] incomplete", idx)
		}
		objects = append(objects, models.DetectedObject{FileName: *o.FileName, Path: *o.Path})
	}

	return DetectionResult{
		Status:      *raw.Status,
		Message:     *raw.Message,
		ObjectCount: *raw.ObjectCount,
		Objects:     objects,
	}, nil
}

// decodeTolerant reads each field on its own. Missing or mistyped fields
// fall back to "", 0 or an empty list. Only a body that is not a JSON
// object fails.
func decodeTolerant(body []byte) (DetectionResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return DetectionResult{}, fmt.Errorf("tolerant decode: %w", err)
	}
	if fields == nil {
		return DetectionResult{}, errors.New("tolerant decode: body is not an object")
	}

	res := DetectionResult{
		Status:      stringField(fields, "status"),
		Message:     stringField(fields, "message"),
		ObjectCount: intField(fields, "object_count"),
		Objects:     []models.DetectedObject{},
	}

	var items []json.RawMessage
	if raw, ok := fields["detected_objects"]; ok && json.Unmarshal(raw, &items) == nil {
		for _, item := range items {
			var obj map[string]json.RawMessage
			if json.Unmarshal(item, &obj) != nil || obj == nil {
				continue
			}
			res.Objects = append(res.Objects, models.DetectedObject{
				FileName: stringField(obj, "filename", "file_name"),
				Path:     stringField(obj, "path", "file_path"),
			})
		}
	}
	return res, nil
}

// stringField returns the first key present as a JSON string.
func stringField(fields map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	return ""
}

// intField accepts a JSON number or a numeric string.
func intField(fields map[string]json.RawMessage, key string) int {
	raw, ok := fields[key]
	if !ok {
		return 0
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		if v, err := n.Int64(); err == nil {
			return int(v)
		}
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v
		}
	}
	return 0
}
