package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crypto-flow-tracer/internal/domain/entity"
	"crypto-flow-tracer/internal/infrastructure/blockchain"
	"crypto-flow-tracer/internal/infrastructure/config"
	"crypto-flow-tracer/internal/infrastructure/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client is a ledger source backed by an Etherscan-compatible explorer API
type Client struct {
	network    string
	baseURL    string
	apiKey     string
	decimals   int
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	logger     *logger.Logger
}

// apiResponse is the envelope of the account module
type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// proxyResponse is the envelope of the proxy module (JSON-RPC passthrough)
type proxyResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type accountTx struct {
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
}

type rpcTx struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	BlockNumber string `json:"blockNumber"`
}

type rpcBlock struct {
	Timestamp string `json:"timestamp"`
}

// retryableError marks failures worth another attempt
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// NewClient creates an explorer client for the given network
func NewClient(network string, cfg *config.ExplorerConfig, log *logger.Logger) (*Client, error) {
	netCfg, ok := cfg.Networks[strings.ToLower(network)]
	if !ok || netCfg.BaseURL == "" {
		return nil, fmt.Errorf("no explorer configured for network %q", network)
	}

	decimals := netCfg.Decimals
	if decimals <= 0 {
		decimals = 18
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		network:    strings.ToLower(network),
		baseURL:    netCfg.BaseURL,
		apiKey:     netCfg.APIKey,
		decimals:   decimals,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     log.WithComponent("explorer-client").WithFields(map[string]interface{}{"network": network}),
	}, nil
}

// FetchTransactions returns the most recent normal transactions touching address
func (c *Client) FetchTransactions(ctx context.Context, address string, limit int) ([]*entity.Transaction, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "txlist")
	params.Set("address", address)
	params.Set("startblock", "0")
	params.Set("endblock", "99999999")
	params.Set("page", "1")
	if limit > 0 {
		params.Set("offset", strconv.Itoa(limit))
	}
	params.Set("sort", "desc")

	var resp apiResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, &entity.FetchError{Key: address, Err: err}
	}

	if resp.Status != "1" {
		// Explorers answer an address without history with status 0 and an empty list
		if strings.Contains(strings.ToLower(resp.Message), "no transactions found") {
			return []*entity.Transaction{}, nil
		}
		var detail string
		_ = json.Unmarshal(resp.Result, &detail)
		return nil, &entity.FetchError{Key: address, Err: fmt.Errorf("explorer error: %s %s", resp.Message, detail)}
	}

	var records []accountTx
	if err := json.Unmarshal(resp.Result, &records); err != nil {
		return nil, &entity.FetchError{Key: address, Err: fmt.Errorf("failed to decode transactions: %w", err)}
	}

	txs := make([]*entity.Transaction, 0, len(records))
	for _, r := range records {
		tx := &entity.Transaction{
			Hash:  r.Hash,
			From:  r.From,
			To:    r.To,
			Value: blockchain.FormatUnits(r.Value, c.decimals),
		}
		tx.Timestamp, _ = strconv.ParseInt(r.TimeStamp, 10, 64)
		if block, err := strconv.ParseInt(r.BlockNumber, 10, 64); err == nil {
			tx.BlockNumber = &block
		}
		txs = append(txs, tx)
	}
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}

	c.logger.Debug("Fetched transactions",
		zap.String("address", address),
		zap.Int("count", len(txs)))
	return txs, nil
}

// FetchTransactionByHash resolves a transaction through the explorer's proxy module
func (c *Client) FetchTransactionByHash(ctx context.Context, hash string) (*entity.TransactionDetail, error) {
	params := url.Values{}
	params.Set("module", "proxy")
	params.Set("action", "eth_getTransactionByHash")
	params.Set("txhash", hash)

	var tx rpcTx
	found, err := c.proxy(ctx, params, &tx)
	if err != nil {
		return nil, &entity.FetchError{Key: hash, Err: err}
	}
	if !found {
		return nil, &entity.NotFoundError{Hash: hash}
	}

	detail := &entity.TransactionDetail{
		Transaction: entity.Transaction{
			Hash:  tx.Hash,
			From:  tx.From,
			To:    tx.To,
			Value: blockchain.FormatUnits(blockchain.HexToDecimal(tx.Value), c.decimals),
		},
		Network: c.network,
	}

	// Pending transactions carry no block
	if tx.BlockNumber == "" {
		return detail, nil
	}
	block, err := strconv.ParseInt(strings.TrimPrefix(tx.BlockNumber, "0x"), 16, 64)
	if err != nil {
		return detail, nil
	}
	detail.BlockNumber = &block

	params = url.Values{}
	params.Set("module", "proxy")
	params.Set("action", "eth_getBlockByNumber")
	params.Set("tag", tx.BlockNumber)
	params.Set("boolean", "false")

	var header rpcBlock
	if found, err := c.proxy(ctx, params, &header); err != nil {
		c.logger.Warn("Failed to resolve block timestamp",
			zap.String("hash", hash),
			zap.Int64("block", block),
			zap.Error(err))
	} else if found {
		detail.Timestamp, _ = strconv.ParseInt(strings.TrimPrefix(header.Timestamp, "0x"), 16, 64)
	}

	return detail, nil
}

// Network returns the network this client serves
func (c *Client) Network() string {
	return c.network
}

// proxy performs a proxy-module call and reports whether the result was non-null
func (c *Client) proxy(ctx context.Context, params url.Values, out interface{}) (bool, error) {
	var resp proxyResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return false, err
	}
	if resp.Error != nil {
		return false, fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}

	raw := strings.TrimSpace(string(resp.Result))
	if raw == "" || raw == "null" {
		return false, nil
	}
	// Rate limit and key errors come back as a bare string result
	if strings.HasPrefix(raw, `"`) {
		var msg string
		_ = json.Unmarshal(resp.Result, &msg)
		return false, fmt.Errorf("explorer error: %s", msg)
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return false, fmt.Errorf("failed to decode result: %w", err)
	}
	return true, nil
}

// get performs a rate-limited GET with retries and decodes the JSON body into out
func (c *Client) get(ctx context.Context, params url.Values, out interface{}) error {
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	endpoint := c.baseURL + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying explorer request",
				zap.String("action", params.Get("action")),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		lastErr = c.do(ctx, endpoint, out)
		if lastErr == nil {
			return nil
		}

		var retryable *retryableError
		if !errors.As(lastErr, &retryable) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, endpoint string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &retryableError{err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryableError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return &retryableError{err: fmt.Errorf("explorer returned status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("explorer returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
