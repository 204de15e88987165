package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// canonical strips the wall-clock fields from a state so that two matches
// replayed from the same seed and moves hash equal.
func canonical(s MatchState) MatchState {
	c := s.Clone()
	c.StartedAt = time.Time{}
	c.EndedAt = time.Time{}
	for i := range c.Actions {
		c.Actions[i].Timestamp = time.Time{}
	}
	// Temporary and persistent effect ids are random.
	for i := range c.Effects.Temporary {
		c.Effects.Temporary[i].ID = ""
	}
	for i := range c.Effects.Persistent {
		c.Effects.Persistent[i].ID = ""
	}
	return c
}

// Checksum returns the SHA-256 of the canonical JSON form of s. Map keys
// are ordered by encoding/json and empty collections are dropped, so a state
// hashes the same before and after a gob roundtrip.
func Checksum(s MatchState) (string, error) {
	data, err := json.Marshal(canonical(s))
	if err != nil {
		return "", fmt.Errorf("failed to encode state: %w", err)
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return "", fmt.Errorf("failed to decode state: %w", err)
	}
	data, err = json.Marshal(prune(tree))
	if err != nil {
		return "", fmt.Errorf("failed to encode state: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// prune removes nulls, empty arrays and empty objects.
func prune(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if child = prune(child); child == nil {
				delete(t, k)
			} else {
				t[k] = child
			}
		}
		if len(t) == 0 {
			return nil
		}
		return t
	case []any:
		if len(t) == 0 {
			return nil
		}
		for i, child := range t {
			t[i] = prune(child)
		}
		return t
	}
	return v
}

// VerifyChecksum reports whether s hashes to expected.
func VerifyChecksum(s MatchState, expected string) (bool, error) {
	computed, err := Checksum(s)
	if err != nil {
		return false, fmt.Errorf("failed to compute checksum: %w", err)
	}
	return computed == expected, nil
}

// Encode serialises a state with gob, the format used for replay files.
func Encode(s MatchState) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&s); err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(data []byte) (MatchState, error) {
	var s MatchState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return MatchState{}, fmt.Errorf("failed to decode state: %w", err)
	}
	return s, nil
}

// ValidateRoundtrip checks that s survives Encode and Decode unchanged.
func ValidateRoundtrip(s MatchState) error {
	before, err := Checksum(s)
	if err != nil {
		return err
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	after, err := Checksum(decoded)
	if err != nil {
		return err
	}
	if before != after {
		return fmt.Errorf("checksum mismatch after roundtrip: %s != %s", before, after)
	}
	return nil
}
