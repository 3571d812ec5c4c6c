package model

import "encoding/json"

// Operation kinds recorded in the journal.
const (
	OpCreate = "create"
	OpAdd    = "add"
	OpRemove = "remove"
	OpSwap   = "swap"
)

// Operation statuses recorded in the journal.
const (
	StatusCommitted = "committed"
	StatusRejected  = "rejected"
)

// OperationRecord is one journal line describing an attempted operation.
type OperationRecord struct {
	PoolID     PoolID          `json:"pool_id"`
	Kind       string          `json:"kind"`
	Account    string          `json:"account"`
	Status     string          `json:"status"`
	ErrorClass string          `json:"error_class,omitempty"`
	Error      string          `json:"error,omitempty"`
	Delta      *OperationDelta `json:"delta,omitempty"`
	State      *PoolState      `json:"state,omitempty"`
	Version    uint64          `json:"version,omitempty"`
	Timestamp  uint64          `json:"timestamp"`
	Data       interface{}     `json:"data,omitempty"`
}

// OperationEntry is the decoded journal line used when reading the journal
// back; Data stays raw until the kind is known.
type OperationEntry struct {
	PoolID     PoolID          `json:"pool_id"`
	Kind       string          `json:"kind"`
	Account    string          `json:"account"`
	Status     string          `json:"status"`
	ErrorClass string          `json:"error_class,omitempty"`
	Error      string          `json:"error,omitempty"`
	Delta      *OperationDelta `json:"delta,omitempty"`
	State      *PoolState      `json:"state,omitempty"`
	Version    uint64          `json:"version,omitempty"`
	Timestamp  uint64          `json:"timestamp"`
	Data       json.RawMessage `json:"data,omitempty"`
}
