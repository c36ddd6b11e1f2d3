// Package kv implements the in-memory key-value state machine and the
// per-client session table used for duplicate suppression.
package kv

import (
	"encoding/json"
	"fmt"
)

// Op identifies a KV operation encoded in the replicated log.
type Op string

// Supported KV operations.
const (
	OpGet    Op = "get"
	OpPut    Op = "put"
	OpAppend Op = "append"
)

// Command is the serialized operation applied to the KV store. A command is
// immutable once proposed; retries of the same logical request carry the
// identical (ClientID, Seq) pair.
type Command struct {
	Op       Op     `json:"op"`
	Key      string `json:"key"`
	Value    string `json:"value,omitempty"`
	ClientID string `json:"client_id"`
	Seq      int64  `json:"seq"`
}

// Result is the outcome of applying a command. For Get, Found reports key
// presence; for Put and Append it is always true.
type Result struct {
	Value string `json:"value,omitempty"`
	Found bool   `json:"found"`
}

// Session records the last applied request and its result for one client.
type Session struct {
	Seq    int64  `json:"seq"`
	Result Result `json:"result"`
}

// EncodeCommand serializes a command for the replicated log.
func EncodeCommand(cmd Command) ([]byte, error) {
	raw, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("kv: encode command: %w", err)
	}
	return raw, nil
}

// DecodeCommand deserializes and validates a committed log entry. A decode
// failure indicates a corrupted log entry and must be treated as fatal by
// the caller; skipping it would desynchronize replicas.
func DecodeCommand(raw []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return Command{}, fmt.Errorf("kv: decode command: %w", err)
	}
	switch cmd.Op {
	case OpGet, OpPut, OpAppend:
	default:
		return Command{}, fmt.Errorf("kv: decode command: unknown op %q", cmd.Op)
	}
	if cmd.ClientID == "" {
		return Command{}, fmt.Errorf("kv: decode command: empty client id")
	}
	if cmd.Seq < 1 {
		return Command{}, fmt.Errorf("kv: decode command: invalid seq %d", cmd.Seq)
	}
	return cmd, nil
}
