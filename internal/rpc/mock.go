package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Handler computes a mock response from the raw call parameters.
type Handler func(params interface{}) (interface{}, error)

// MockClient is a programmable Client for tests. Fixed responses cover most
// methods; handlers cover methods whose reply depends on the parameters.
type MockClient struct {
	mu        sync.Mutex
	responses map[string]interface{}
	handlers  map[string]Handler
	errors    map[string]error
	callCount map[string]int
}

// NewMockClient creates an empty mock client.
func NewMockClient() *MockClient {
	return &MockClient{
		responses: make(map[string]interface{}),
		handlers:  make(map[string]Handler),
		errors:    make(map[string]error),
		callCount: make(map[string]int),
	}
}

// Call executes the configured behavior for method.
func (m *MockClient) Call(_ context.Context, method string, params interface{}) (json.RawMessage, error) {
	m.mu.Lock()
	m.callCount[method]++
	err, hasErr := m.errors[method]
	handler, hasHandler := m.handlers[method]
	response, hasResponse := m.responses[method]
	m.mu.Unlock()

	if hasErr {
		return nil, err
	}
	if hasHandler {
		var herr error
		if response, herr = handler(params); herr != nil {
			return nil, herr
		}
	} else if !hasResponse {
		return nil, fmt.Errorf("no mock response configured for method: %s", method)
	}

	data, merr := json.Marshal(response)
	if merr != nil {
		return nil, fmt.Errorf("failed to marshal mock response: %w", merr)
	}
	return data, nil
}

// SetResponse configures a fixed response for a method. A nil response
// produces a JSON null result.
func (m *MockClient) SetResponse(method string, response interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[method] = response
	delete(m.errors, method)
	delete(m.handlers, method)
}

// SetHandler configures a parameter-dependent response for a method.
func (m *MockClient) SetHandler(method string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method] = h
	delete(m.errors, method)
}

// SetError makes a method fail at the transport level.
func (m *MockClient) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[method] = err
}

// CallCount returns how many times a method was invoked.
func (m *MockClient) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount[method]
}

// Close is a no-op.
func (m *MockClient) Close() error {
	return nil
}
