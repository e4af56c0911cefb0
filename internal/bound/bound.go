// Package bound reads and writes the .bound exchange format: a JSON
// envelope carrying a serialized document, a sha256 checksum over the
// payload string, and optional gzip compression. Decoding verifies the
// checksum before trusting the payload and lifts older schema generations
// through the migration pipeline.
package bound

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/bound/backend/internal/migrate"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
)

// FormatVersion identifies the envelope layout, independent of the schema
// version of the document inside.
const FormatVersion = 1

// File is the envelope of the exchange format. A string payload is
// base64-encoded gzip; an object payload is the document itself. The
// checksum digests the payload exactly as it appears in the file.
type File struct {
	Version       int             `json:"version"`
	SchemaVersion int             `json:"schemaVersion"`
	CreatedAt     int64           `json:"createdAt"`
	Checksum      string          `json:"checksum"`
	Payload       json.RawMessage `json:"payload"`
}

// Encode serializes a document into the exchange format.
func Encode(document state.AppState, now time.Time, compress bool) ([]byte, error) {
	payload, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("encode document payload: %w", err)
	}

	payloadField := json.RawMessage(payload)
	digestInput := payload
	if compress {
		var compressedBuffer bytes.Buffer
		writer := gzip.NewWriter(&compressedBuffer)
		if _, err := writer.Write(payload); err != nil {
			return nil, fmt.Errorf("compress document payload: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("compress document payload: %w", err)
		}
		encoded := base64.StdEncoding.EncodeToString(compressedBuffer.Bytes())
		digestInput = []byte(encoded)
		payloadField, err = json.Marshal(encoded)
		if err != nil {
			return nil, fmt.Errorf("encode compressed payload: %w", err)
		}
	}

	file := File{
		Version:       FormatVersion,
		SchemaVersion: document.Version,
		CreatedAt:     state.NowMillis(now),
		Checksum:      checksum(digestInput),
		Payload:       payloadField,
	}
	return json.Marshal(file)
}

// Decode reads an exchange file back into a document. The gates run in
// order: parse, envelope validation (reporting every violation at once),
// checksum verification, decompression, migration, and finally the shared
// document validation.
func Decode(data []byte, logger *zap.Logger) (state.AppState, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if !json.Valid(data) {
		return state.AppState{}, fmt.Errorf("%w: failed to parse file", state.ErrParse)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return state.AppState{}, state.NewValidationError("invalid .bound file", []string{"file is not a JSON object"})
	}

	problems := make([]string, 0)

	version, versionOK := intField(envelope, "version")
	switch {
	case !versionOK:
		problems = append(problems, "version must be an integer")
	case version != FormatVersion:
		problems = append(problems, fmt.Sprintf("unsupported file version %d", version))
	}

	schemaVersion, schemaOK := intField(envelope, "schemaVersion")
	switch {
	case !schemaOK:
		problems = append(problems, "schemaVersion must be an integer")
	case schemaVersion < 1:
		problems = append(problems, fmt.Sprintf("schemaVersion must be at least 1, got %d", schemaVersion))
	case schemaVersion > state.SchemaVersion:
		problems = append(problems, fmt.Sprintf("schemaVersion %d is newer than the supported %d", schemaVersion, state.SchemaVersion))
	}

	if createdAt, createdOK := intField(envelope, "createdAt"); !createdOK {
		problems = append(problems, "createdAt must be an integer")
	} else if createdAt < 0 {
		problems = append(problems, fmt.Sprintf("createdAt must not be negative, got %d", createdAt))
	}

	recordedChecksum, checksumOK := stringField(envelope, "checksum")
	switch {
	case !checksumOK:
		problems = append(problems, "checksum must be a string")
	case !wellFormedChecksum(recordedChecksum):
		problems = append(problems, "checksum must be 64 lowercase hex characters")
	}

	payloadRaw, payloadPresent := envelope["payload"]
	payloadRaw = bytes.TrimSpace(payloadRaw)
	if !payloadPresent || len(payloadRaw) == 0 || bytes.Equal(payloadRaw, []byte("null")) {
		problems = append(problems, "payload is missing")
	}

	if len(problems) > 0 {
		return state.AppState{}, state.NewValidationError("invalid .bound file", problems)
	}

	payloadBytes, err := verifiedPayload(payloadRaw, recordedChecksum)
	if err != nil {
		return state.AppState{}, err
	}

	var rawDocument map[string]any
	if err := json.Unmarshal(payloadBytes, &rawDocument); err != nil {
		return state.AppState{}, fmt.Errorf("%w: payload is not a JSON object: %v", state.ErrParse, err)
	}

	if _, recorded := rawDocument["version"]; !recorded {
		rawDocument["version"] = int(schemaVersion)
	} else if payloadVersion := migrate.FromVersion(rawDocument); int64(payloadVersion) != schemaVersion {
		return state.AppState{}, state.NewValidationError("invalid .bound file",
			[]string{fmt.Sprintf("schemaVersion %d does not match the payload version %d", schemaVersion, payloadVersion)})
	}

	document, err := migrate.Run(rawDocument, logger)
	if err != nil {
		return state.AppState{}, err
	}

	if err := state.CheckState(document); err != nil {
		return state.AppState{}, err
	}

	return document, nil
}

// verifiedPayload checks the payload against the recorded checksum and
// returns the serialized document bytes. A string payload digests as the
// base64 text and then decompresses; an object payload digests as the exact
// bytes embedded in the file.
func verifiedPayload(payloadRaw json.RawMessage, recordedChecksum string) ([]byte, error) {
	if payloadRaw[0] != '"' {
		if checksum(payloadRaw) != recordedChecksum {
			return nil, fmt.Errorf("%w: checksum mismatch", state.ErrIntegrity)
		}
		return payloadRaw, nil
	}

	var encoded string
	if err := json.Unmarshal(payloadRaw, &encoded); err != nil {
		return nil, fmt.Errorf("%w: payload string is malformed: %v", state.ErrParse, err)
	}
	if checksum([]byte(encoded)) != recordedChecksum {
		return nil, fmt.Errorf("%w: checksum mismatch", state.ErrIntegrity)
	}

	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not valid base64: %v", state.ErrParse, err)
	}
	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not gzip data: %v", state.ErrParse, err)
	}
	defer reader.Close()

	payloadBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress payload: %v", state.ErrParse, err)
	}
	return payloadBytes, nil
}

func checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func wellFormedChecksum(value string) bool {
	if len(value) != 64 {
		return false
	}
	for _, character := range value {
		if (character < '0' || character > '9') && (character < 'a' || character > 'f') {
			return false
		}
	}
	return true
}

func intField(envelope map[string]json.RawMessage, key string) (int64, bool) {
	raw, present := envelope[key]
	if !present {
		return 0, false
	}
	var value int64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, false
	}
	return value, true
}

func stringField(envelope map[string]json.RawMessage, key string) (string, bool) {
	raw, present := envelope[key]
	if !present {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}
