package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	PayPath          = "/pg/v1/pay"
	StatusPathPrefix = "/pg/v1/status"

	maxResponseBytes = 1 << 20
)

type Config struct {
	MerchantID string
	SaltKey    string
	SaltIndex  int
	BaseURL    string
	Timeout    time.Duration
}

func (c Config) Validate() error {
	switch {
	case c.MerchantID == "":
		return errors.New("gateway: merchant id is required")
	case c.SaltKey == "":
		return errors.New("gateway: salt key is required")
	case c.SaltIndex < 1:
		return errors.New("gateway: salt index must be positive")
	case c.Timeout <= 0:
		return errors.New("gateway: timeout must be positive")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("gateway: invalid base url %q", c.BaseURL)
	}
	return nil
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// Initiate sends a single pay request. It never retries: the gateway keys
// idempotency on the merchant transaction id.
func (c *Client) Initiate(ctx context.Context, req PayRequest) (*PayResponse, error) {
	if req.MerchantID == "" {
		req.MerchantID = c.cfg.MerchantID
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pay request: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(payload)
	checksum := Sign(encoded, PayPath, c.cfg.SaltKey, c.cfg.SaltIndex)

	body, err := json.Marshal(payEnvelope{Request: encoded})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pay envelope: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+PayPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create pay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-VERIFY", checksum)

	c.logger.Info("Sending pay request to gateway",
		zap.String("transaction_id", req.MerchantTransactionID),
		zap.Int64("amount", req.Amount))

	raw, status, err := c.send(httpReq)
	if err != nil {
		return nil, err
	}

	resp := &PayResponse{}
	if err := json.Unmarshal(raw, resp); err != nil {
		if !isSuccessStatus(status) {
			return nil, &Error{Kind: ErrGatewayRejected, StatusCode: status, Message: truncate(raw)}
		}
		return nil, &Error{Kind: ErrMalformedUpstreamResponse, StatusCode: status, Err: err}
	}
	resp.Raw = raw

	if !isSuccessStatus(status) || !resp.Success {
		c.logger.Warn("Gateway rejected pay request",
			zap.String("transaction_id", req.MerchantTransactionID),
			zap.Int("status", status),
			zap.String("code", resp.Code),
			zap.String("message", resp.Message))
		return nil, &Error{Kind: ErrGatewayRejected, StatusCode: status, Code: resp.Code, Message: resp.Message}
	}
	if resp.RedirectURL() == "" {
		return nil, &Error{Kind: ErrMalformedUpstreamResponse, StatusCode: status, Code: resp.Code,
			Message: "response has no data.instrumentResponse.redirectInfo.url"}
	}

	c.logger.Info("Gateway accepted pay request", zap.String("transaction_id", req.MerchantTransactionID))
	return resp, nil
}

// CheckStatus asks the gateway for the current state of a transaction.
func (c *Client) CheckStatus(ctx context.Context, transactionID string) (*StatusResponse, error) {
	path := fmt.Sprintf("%s/%s/%s", StatusPathPrefix, url.PathEscape(c.cfg.MerchantID), url.PathEscape(transactionID))
	checksum := Sign("", path, c.cfg.SaltKey, c.cfg.SaltIndex)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-VERIFY", checksum)
	httpReq.Header.Set("X-MERCHANT-ID", c.cfg.MerchantID)

	raw, status, err := c.send(httpReq)
	if err != nil {
		return nil, err
	}

	resp := &StatusResponse{}
	if err := json.Unmarshal(raw, resp); err != nil {
		if !isSuccessStatus(status) {
			return nil, &Error{Kind: ErrGatewayRejected, StatusCode: status, Message: truncate(raw)}
		}
		return nil, &Error{Kind: ErrMalformedUpstreamResponse, StatusCode: status, Err: err}
	}
	resp.Raw = raw

	// A failed payment is reported as success=false with a payment code; that
	// is an answer, not a rejection of the status request.
	if !isSuccessStatus(status) && resp.Code == "" {
		return nil, &Error{Kind: ErrGatewayRejected, StatusCode: status, Message: resp.Message}
	}
	if resp.Code == "" {
		return nil, &Error{Kind: ErrMalformedUpstreamResponse, StatusCode: status, Message: "status response has no code"}
	}
	return resp, nil
}

func (c *Client) send(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Gateway request failed", zap.String("url", req.URL.Path), zap.Error(err))
		return nil, 0, &Error{Kind: ErrGatewayUnreachable, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, &Error{Kind: ErrGatewayUnreachable, StatusCode: resp.StatusCode, Err: err}
	}
	return raw, resp.StatusCode, nil
}

func isSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}

func truncate(b []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
