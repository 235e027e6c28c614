package arbitrage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// PayloadHash computes a deterministic digest of a run input. The payload is
// re-marshalled through a generic value so that object keys end up sorted
// and formatting is canonical: semantically identical payloads from
// different callers hash the same regardless of field order. The hash is an
// audit trace, not a dedup key; identical submissions still create new runs.
func PayloadHash(payload any) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	var generic any
	if err := json.Unmarshal(encoded, &generic); err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// NewAudit builds the audit block for a run computed now.
func NewAudit(payload any, triggeredBy, engineVersion string, now time.Time) (Audit, error) {
	hash, err := PayloadHash(payload)
	if err != nil {
		return Audit{}, err
	}
	return Audit{
		EngineVersion: engineVersion,
		TriggeredBy:   triggeredBy,
		PayloadHash:   hash,
		TimestampUTC:  now.UTC().Format(time.RFC3339),
	}, nil
}
