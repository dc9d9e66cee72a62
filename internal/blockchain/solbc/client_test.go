package solbc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, id, result)
}

func accountJSON(data []byte) string {
	return fmt.Sprintf(`{"data":[%q,"base64"],"executable":false,"lamports":1000,"owner":%q,"rentEpoch":0}`,
		base64.StdEncoding.EncodeToString(data), solana.SystemProgramID.String())
}

func TestNewClientRequiresNodes(t *testing.T) {
	_, err := NewClient(nil, Options{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNoRPCNodes)
}

func TestGetMultipleAccountsData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "getMultipleAccounts", req.Method)
		writeResult(w, req.ID, fmt.Sprintf(`{"context":{"slot":42},"value":[%s,null]}`, accountJSON([]byte{1, 2, 3})))
	}))
	defer srv.Close()

	c, err := NewClient([]string{srv.URL}, Options{Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	slot, data, err := c.GetMultipleAccountsData(context.Background(), []solana.PublicKey{
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), slot)
	require.Len(t, data, 2)
	assert.Equal(t, []byte{1, 2, 3}, data[0])
	assert.Nil(t, data[1])

	stats := c.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, uint64(1), stats[0].SuccessCount)
}

func TestGetMultipleAccountsDataEmpty(t *testing.T) {
	c, err := NewClient([]string{"http://127.0.0.1:1"}, Options{}, zap.NewNop())
	require.NoError(t, err)
	slot, data, err := c.GetMultipleAccountsData(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, slot)
	assert.Empty(t, data)
}

func TestExecuteRotatesNodesOnFailure(t *testing.T) {
	var badHits atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badHits.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeResult(w, req.ID, `77`)
	}))
	defer good.Close()

	c, err := NewClient([]string{bad.URL, good.URL}, Options{Timeout: time.Second, Retries: 3}, zap.NewNop())
	require.NoError(t, err)

	slot, err := c.GetSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(77), slot)
	assert.Equal(t, int32(1), badHits.Load())
	assert.Equal(t, bad.URL, c.Endpoint())
}

func TestGetAccountDataNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeResult(w, req.ID, `{"context":{"slot":5},"value":null}`)
	}))
	defer srv.Close()

	c, err := NewClient([]string{srv.URL}, Options{Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	_, _, err = c.GetAccountData(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"not found", ErrAccountNotFound, false},
		{"invalid params", &jsonrpc.RPCError{Code: -32602, Message: "Invalid params"}, false},
		{"node behind", &jsonrpc.RPCError{Code: -32005, Message: "Node is behind"}, true},
		{"rate limit text", errors.New("429 Too Many Requests"), true},
		{"wrapped canceled", NewRPCError(context.Canceled, "http://x", "getSlot"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestRPCErrorUnwrap(t *testing.T) {
	err := NewRPCError(ErrAccountNotFound, "http://node", "getAccountInfo")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Contains(t, err.Error(), "getAccountInfo")
	assert.Contains(t, err.Error(), "http://node")
	assert.True(t, IsAccountNotFoundError(err))
}
