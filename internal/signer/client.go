package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/saingsab/jaamlong/internal/errs"
	"github.com/saingsab/jaamlong/internal/models"
)

// Client is the coordinator's handle to the signer service. It logs in
// lazily, caches the bearer token and re-authenticates once on 401.
type Client struct {
	endpoint   string
	username   string
	password   string
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

// NewClient builds a signer client for the given endpoint and credentials.
func NewClient(endpoint, username, password string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SignNative requests a signed native-transfer transaction.
func (c *Client) SignNative(ctx context.Context, req *SignRequest) ([]byte, error) {
	return c.sign(ctx, "/sign-raw-tx", req)
}

// SignERC20 requests a signed ERC20 transfer transaction.
func (c *Client) SignERC20(ctx context.Context, req *SignRequest) ([]byte, error) {
	return c.sign(ctx, "/sign-erc20-tx", req)
}

func (c *Client) sign(ctx context.Context, path string, req *SignRequest) ([]byte, error) {
	status, body, err := c.post(ctx, path, req, true)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		// Token expired; clear and retry once with a fresh login.
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		if status, body, err = c.post(ctx, path, req, true); err != nil {
			return nil, err
		}
	}

	var resp models.APIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errs.Upstreamf(errs.CodeSignerUnavailable, err, "malformed signer response")
	}
	if status != http.StatusOK || resp.Status != "success" {
		detail, _ := resp.Data.(string)
		if detail == "" {
			detail = resp.Message
		}
		return nil, errs.Upstreamf(errs.CodeSignerUnavailable, nil, "signer rejected request: %s", detail)
	}
	rawHex, ok := resp.Data.(string)
	if !ok {
		return nil, errs.Upstreamf(errs.CodeSignerUnavailable, nil, "signer returned no raw transaction")
	}
	raw, err := hexutil.Decode(rawHex)
	if err != nil {
		return nil, errs.Upstreamf(errs.CodeSignerUnavailable, err, "signer returned malformed raw transaction")
	}
	return raw, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, authed bool) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, errs.Internalf(errs.CodeBug, err, "marshaling signer request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, errs.Internalf(errs.CodeBug, err, "building signer request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if authed {
		token, err := c.bearer(ctx)
		if err != nil {
			return 0, nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, errs.Upstreamf(errs.CodeSignerUnavailable, err, "signer unreachable")
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errs.Upstreamf(errs.CodeSignerUnavailable, err, "reading signer response")
	}
	return resp.StatusCode, respBody, nil
}

func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	status, body, err := c.post(ctx, "/login", LoginRequest{Username: c.username, Password: c.password}, false)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", errs.Upstreamf(errs.CodeSignerUnavailable, nil, "signer login failed: %s", string(body))
	}
	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Data.Token == "" {
		return "", errs.Upstreamf(errs.CodeSignerUnavailable, err, "signer login returned no token")
	}
	c.token = resp.Data.Token
	return c.token, nil
}
