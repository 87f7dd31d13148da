package artifacts

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"resume-typeset/resume/model"
)

// durableRecord is the JSON shape written to the object store for a user's
// current artifact. The binary travels base64-encoded inside the record so a
// single object round-trips the whole artifact.
type durableRecord struct {
	Version       int              `json:"version"`
	Fingerprint   string           `json:"fingerprint"`
	TemplateID    string           `json:"templateId"`
	JobTarget     *model.JobTarget `json:"jobTarget,omitempty"`
	GeneratedAt   time.Time        `json:"generatedAt"`
	SizeBytes     int64            `json:"sizeBytes"`
	PageCount     int              `json:"pageCount"`
	HasTextLayer  bool             `json:"hasTextLayer"`
	EncodedBinary string           `json:"encodedBinary"`
}

const durableRecordVersion = 1

// encodeDurable serializes an artifact plus its binary into the durable
// record form. The handle is deliberately absent: handles never persist.
func encodeDurable(artifact CompiledArtifact, binary []byte) ([]byte, error) {
	record := durableRecord{
		Version:       durableRecordVersion,
		Fingerprint:   artifact.Fingerprint,
		TemplateID:    artifact.TemplateID,
		JobTarget:     artifact.JobTarget,
		GeneratedAt:   artifact.GeneratedAt,
		SizeBytes:     artifact.SizeBytes,
		PageCount:     artifact.PageCount,
		HasTextLayer:  artifact.HasTextLayer,
		EncodedBinary: base64.StdEncoding.EncodeToString(binary),
	}
	return json.Marshal(record)
}

// decodeDurable parses a durable record back into artifact metadata and the
// raw binary. Any structural problem maps to ErrArtifactDecode so callers
// can uniformly treat a bad record as a cache miss.
func decodeDurable(payload []byte) (CompiledArtifact, []byte, error) {
	var record durableRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return CompiledArtifact{}, nil, fmt.Errorf("%w: %v", ErrArtifactDecode, err)
	}
	if record.Fingerprint == "" || record.EncodedBinary == "" {
		return CompiledArtifact{}, nil, fmt.Errorf("%w: missing fields", ErrArtifactDecode)
	}
	binary, err := base64.StdEncoding.DecodeString(record.EncodedBinary)
	if err != nil {
		return CompiledArtifact{}, nil, fmt.Errorf("%w: %v", ErrArtifactDecode, err)
	}
	if record.SizeBytes != 0 && record.SizeBytes != int64(len(binary)) {
		return CompiledArtifact{}, nil, fmt.Errorf("%w: size mismatch", ErrArtifactDecode)
	}
	artifact := CompiledArtifact{
		Fingerprint:  record.Fingerprint,
		TemplateID:   record.TemplateID,
		JobTarget:    record.JobTarget,
		GeneratedAt:  record.GeneratedAt,
		SizeBytes:    int64(len(binary)),
		PageCount:    record.PageCount,
		HasTextLayer: record.HasTextLayer,
	}
	return artifact, binary, nil
}
