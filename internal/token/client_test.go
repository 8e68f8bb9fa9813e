package token

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func rpcHandler(t *testing.T, wantMethod string, result interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.JSONRPC != "2.0" {
			t.Errorf("expected jsonrpc 2.0, got %s", req.JSONRPC)
		}
		if req.Method != wantMethod {
			t.Errorf("expected method %s, got %s", wantMethod, req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func TestHTTPClient_Allowance(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, "token_allowance", 120))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	amount, err := client.Allowance(context.Background(), "owner", "spender")
	if err != nil {
		t.Fatalf("Allowance: %v", err)
	}
	if amount != 120 {
		t.Errorf("expected allowance 120, got %d", amount)
	}
}

func TestHTTPClient_TransferFrom(t *testing.T) {
	var gotParams []interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != "token_transferFrom" {
			t.Errorf("expected method token_transferFrom, got %s", req.Method)
		}
		gotParams = req.Params

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": true}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ok, err := client.TransferFrom(context.Background(), "owner", "recipient", 50)
	if err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	if !ok {
		t.Error("expected transfer accepted")
	}
	if len(gotParams) != 3 {
		t.Fatalf("expected 3 params, got %d", len(gotParams))
	}
	if gotParams[0] != "owner" || gotParams[1] != "recipient" {
		t.Errorf("unexpected params: %v", gotParams)
	}
}

func TestHTTPClient_TransferFromRefused(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, "token_transferFrom", false))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ok, err := client.TransferFrom(context.Background(), "owner", "recipient", 50)
	if err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}
	if ok {
		t.Error("expected refused transfer to report false")
	}
}

func TestHTTPClient_TransferRejected(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, "token_transfer", false))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	if err := client.Transfer(context.Background(), "recipient", 50); err == nil {
		t.Error("expected error for rejected transfer")
	}
}

func TestHTTPClient_Burn(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, "token_burn", true))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	if err := client.Burn(context.Background(), 50); err != nil {
		t.Fatalf("Burn: %v", err)
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32000, "message": "node down"},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	if _, err := client.Allowance(context.Background(), "owner", "spender"); err == nil {
		t.Error("expected rpc error to surface")
	}
}

func TestHTTPClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	if _, err := client.Allowance(context.Background(), "owner", "spender"); err == nil {
		t.Error("expected http status error to surface")
	}
}

func TestHTTPClient_RequestIDsIncrease(t *testing.T) {
	var ids []uint64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		ids = append(ids, req.ID)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": 0}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()
	client.Allowance(ctx, "a", "b")
	client.Allowance(ctx, "a", "b")

	if len(ids) != 2 || ids[1] <= ids[0] {
		t.Errorf("expected increasing request ids, got %v", ids)
	}
}
