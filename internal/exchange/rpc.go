package exchange

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mr-tron/base58"

	"liquidator/pkg/ratelimit"
	"liquidator/pkg/retry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Максимальный размер ответа шлюза
const maxResponseSize = 16 << 20

// Заголовки аутентификации запроса
const (
	HeaderPublicKey = "X-Liquidator-Pubkey"
	HeaderSignature = "X-Liquidator-Signature"
)

// CallObserver получает результат каждого RPC-вызова (метрики)
type CallObserver func(service, method string, duration time.Duration, err error)

// rpcRequest - запрос JSON-RPC 2.0
type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// rpcResponse - ответ JSON-RPC 2.0
type rpcResponse struct {
	ID     uint64              `json:"id"`
	Result jsoniter.RawMessage `json:"result"`
	Error  *rpcError           `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *struct {
		Reason string `json:"reason"`
	} `json:"data"`
}

// rpcClient - транспорт JSON-RPC к шлюзу, общий для леджера и площадки
//
// Чтения повторяются с backoff, записи выполняются ровно один раз.
type rpcClient struct {
	service  string
	endpoint string
	http     *HTTPClient
	limiter  *ratelimit.MultiLimiter
	retryCfg retry.Config
	observer CallObserver
	signer   *Keypair
	nextID   atomic.Uint64
}

func newRPCClient(service, endpoint string, httpClient *HTTPClient, limiter *ratelimit.MultiLimiter, retryCfg retry.Config, observer CallObserver, signer *Keypair) *rpcClient {
	retryCfg.RetryIf = retry.IsRetryable
	return &rpcClient{
		service:  service,
		endpoint: endpoint,
		http:     httpClient,
		limiter:  limiter,
		retryCfg: retryCfg,
		observer: observer,
		signer:   signer,
	}
}

// read выполняет идемпотентный вызов с повторами
func (c *rpcClient) read(ctx context.Context, method string, params, result interface{}) error {
	return retry.Do(ctx, func() error {
		return c.call(ctx, ratelimit.CategoryRead, method, params, result)
	}, c.retryCfg)
}

// write выполняет изменяющий вызов один раз
func (c *rpcClient) write(ctx context.Context, method string, params, result interface{}) error {
	return c.call(ctx, ratelimit.CategoryWrite, method, params, result)
}

func (c *rpcClient) call(ctx context.Context, category, method string, params, result interface{}) (err error) {
	start := time.Now()
	if c.observer != nil {
		defer func() { c.observer(c.service, method, time.Since(start), err) }()
	}

	if err := c.limiter.Wait(ctx, category); err != nil {
		return err
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return retry.Permanent(fmt.Errorf("%s.%s: encode request: %w", c.service, method, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Шлюз проверяет, что запрос отправлен владельцем ключа ликвидатора
	if c.signer != nil {
		req.Header.Set(HeaderPublicKey, c.signer.PublicKey())
		req.Header.Set(HeaderSignature, base58.Encode(c.signer.Sign(body)))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Отмена контекста не оборачиваем: её классифицирует retry
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ExchangeError{Service: c.service, Method: method, Code: CodeTransport, Message: err.Error(), Original: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &ExchangeError{Service: c.service, Method: method, Code: CodeTransport, Status: resp.StatusCode, Message: err.Error(), Original: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &ExchangeError{
			Service: c.service,
			Method:  method,
			Code:    http.StatusText(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: truncate(string(data), 256),
		}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return retry.Permanent(fmt.Errorf("%s.%s: decode response: %w", c.service, method, err))
	}

	if rpcResp.Error != nil {
		return c.rpcErrorToExchange(method, resp.StatusCode, rpcResp.Error)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return retry.Permanent(fmt.Errorf("%s.%s: decode result: %w", c.service, method, err))
	}
	return nil
}

// rpcErrorToExchange классифицирует ошибку шлюза
func (c *rpcClient) rpcErrorToExchange(method string, status int, e *rpcError) *ExchangeError {
	exErr := &ExchangeError{
		Service: c.service,
		Method:  method,
		Code:    fmt.Sprintf("%d", e.Code),
		Status:  status,
		Message: e.Message,
	}
	if e.Data != nil && e.Data.Reason != "" {
		exErr.Code = e.Data.Reason
		switch e.Data.Reason {
		case ReasonAccountHealthy, ReasonAlreadyLiquidated, ReasonStalePrice:
			exErr.Original = ErrStaleState
		}
	}
	return exErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
