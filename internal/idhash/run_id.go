package idhash

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
)

// runIDBytes is the number of hash bytes kept in a run ID.
const runIDBytes = 16

// ComputeRunID computes a deterministic run_id.
// Formula: base58(SHA256(kind|seed|json(params))[:16])
// params must marshal deterministically (structs, not maps with float keys).
func ComputeRunID(kind string, seed uint64, params any) (string, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}
	data := fmt.Sprintf("%s|%d|%s", kind, seed, encoded)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:runIDBytes]), nil
}

// ComputeStudyID computes a deterministic study_id from a study name and its run IDs.
// Formula: base58(SHA256(name|run_id_1|...|run_id_n)[:16])
func ComputeStudyID(name string, runIDs []string) string {
	data := name
	for _, id := range runIDs {
		data += "|" + id
	}
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:runIDBytes])
}

// Valid reports whether id decodes as a run or study ID.
func Valid(id string) bool {
	raw, err := base58.Decode(id)
	return err == nil && len(raw) == runIDBytes
}
