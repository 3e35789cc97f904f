package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientCall(t *testing.T) {
	var gotMethod string
	var gotParams []interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotMethod = req["method"].(string)
		gotParams = req["params"].([]interface{})
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req["id"],
			"result":  "0x10",
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	defer client.Close()

	result, err := client.Call(context.Background(), "eth_blockNumber", nil)
	require.NoError(t, err)
	assert.Equal(t, `"0x10"`, string(result))
	assert.Equal(t, "eth_blockNumber", gotMethod)
	assert.Empty(t, gotParams)
}

func TestHTTPClientRPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"error":   map[string]interface{}{"code": -32000, "message": "nonce too low"},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	_, err := client.Call(context.Background(), "eth_sendRawTransaction", []interface{}{"0x00"})
	require.Error(t, err)

	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32000, rpcErr.Code)
	assert.Equal(t, "nonce too low", rpcErr.Message)
}

func TestHTTPClientHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	_, err := client.Call(context.Background(), "eth_gasPrice", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP error")
}

func TestHTTPClientTransportError(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := client.Call(context.Background(), "eth_gasPrice", nil)
	require.Error(t, err)
}

func TestHTTPClientIncrementsRequestIDs(t *testing.T) {
	var ids []float64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		ids = append(ids, req["id"].(float64))
		json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req["id"], "result": "0x1"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	for i := 0; i < 3; i++ {
		_, err := client.Call(context.Background(), "eth_chainId", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, []float64{1, 2, 3}, ids)
}
