// internal/blockchain/solbc/errors.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// Определение ошибок
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrNoRPCNodes      = errors.New("no RPC nodes configured")
)

// RPCError представляет ошибку RPC с дополнительным контекстом
type RPCError struct {
	Err     error
	NodeURL string
	Method  string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error [%s] at %s: %v", e.Method, e.NodeURL, e.Err)
}

// Unwrap возвращает оригинальную ошибку
func (e *RPCError) Unwrap() error {
	return e.Err
}

// NewRPCError создает новую ошибку RPC
func NewRPCError(err error, nodeURL, method string) error {
	return &RPCError{Err: err, NodeURL: nodeURL, Method: method}
}

// IsAccountNotFoundError проверяет, является ли ошибка "not found"
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAccountNotFound) || errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// IsRetryable решает, имеет ли смысл повторить запрос на следующем узле.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || IsAccountNotFoundError(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case -32602, -32601, -32600: // invalid params / method / request
			return false
		}
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"invalid param", "wrongsize", "unauthorized", "forbidden"} {
		if strings.Contains(msg, marker) {
			return false
		}
	}
	return true
}
