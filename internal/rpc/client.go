// Package rpc provides the JSON-RPC transport used to talk to chain nodes.
package rpc

import (
	"context"
	"encoding/json"
)

// Client abstracts JSON-RPC communication with a single node endpoint.
type Client interface {
	// Call executes a single JSON-RPC method call. params is JSON-marshaled as
	// the positional parameter list.
	Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error)

	// Close releases the underlying transport.
	Close() error
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}
