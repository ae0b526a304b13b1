// Package verify submits contract sources to an Etherscan-compatible explorer.
package verify

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// DefaultAPIURL is the Etherscan v2 multichain endpoint.
	DefaultAPIURL = "https://api.etherscan.io/v2/api"
	// DefaultTimeout is the HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	headerUserAgent = "User-Agent"
	userAgent       = "lotteryctl/1.0"
)

var (
	// ErrVerificationFailed is returned when the explorer rejects the submission.
	ErrVerificationFailed = errors.New("verify: verification failed")
	// ErrPending is returned when the explorer did not finish within the allowed attempts.
	ErrPending = errors.New("verify: verification still pending")
)

// Request describes one contract verification.
type Request struct {
	ChainID uint64
	Address common.Address
	// ContractName is the fully qualified name, e.g. "contracts/Lottery.sol:Lottery".
	ContractName string
	// CompilerVersion is the solc long version prefixed with v, e.g. "v0.8.7+commit.e28d00a7".
	CompilerVersion string
	// SourceCode is the solc standard JSON input.
	SourceCode json.RawMessage
	// ConstructorArgs is the ABI-encoded constructor arguments.
	ConstructorArgs []byte
}

// Verifier verifies deployed contracts.
type Verifier interface {
	Verify(ctx context.Context, req Request) error
}

// Client talks to the explorer API.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	maxAttempts  int
	logger       *slog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithPolling sets how often and how many times the status is checked.
func WithPolling(interval time.Duration, attempts int) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
		if attempts > 0 {
			c.maxAttempts = attempts
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates an explorer client for apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      DefaultAPIURL,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		pollInterval: 5 * time.Second,
		maxAttempts:  20,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// apiResponse is the explorer's envelope. Result is a string for the calls used here.
type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// Verify submits req and waits for the explorer's verdict.
// A contract that is already verified counts as success.
func (c *Client) Verify(ctx context.Context, req Request) error {
	c.logger.Info("Verifying contract...",
		slog.String("address", req.Address.Hex()),
		slog.String("contract", req.ContractName),
	)

	guid, err := c.submit(ctx, req)
	if err != nil {
		if isAlreadyVerified(err.Error()) {
			c.logger.Info("Already verified!", slog.String("address", req.Address.Hex()))
			return nil
		}
		return err
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := sleep(ctx, c.pollInterval); err != nil {
			return err
		}

		resp, err := c.do(ctx, http.MethodGet, url.Values{
			"chainid": {strconv.FormatUint(req.ChainID, 10)},
			"module":  {"contract"},
			"action":  {"checkverifystatus"},
			"guid":    {guid},
		})
		if err != nil {
			return err
		}

		switch {
		case isAlreadyVerified(resp.Result):
			c.logger.Info("Already verified!", slog.String("address", req.Address.Hex()))
			return nil
		case strings.HasPrefix(resp.Result, "Pass"):
			c.logger.Info("contract verified",
				slog.String("address", req.Address.Hex()),
				slog.String("guid", guid),
			)
			return nil
		case strings.Contains(resp.Result, "Pending"):
			c.logger.Debug("verification pending", slog.String("guid", guid), slog.Int("attempt", attempt))
		default:
			return fmt.Errorf("%w: %s", ErrVerificationFailed, resp.Result)
		}
	}
	return fmt.Errorf("%w: guid %s", ErrPending, guid)
}

// submit posts the source. The explorer may not have indexed a fresh
// deployment yet, so "Unable to locate ContractCode" is retried.
func (c *Client) submit(ctx context.Context, req Request) (string, error) {
	form := url.Values{
		"chainid":               {strconv.FormatUint(req.ChainID, 10)},
		"module":                {"contract"},
		"action":                {"verifysourcecode"},
		"codeformat":            {"solidity-standard-json-input"},
		"sourceCode":            {string(req.SourceCode)},
		"contractaddress":       {req.Address.Hex()},
		"contractname":          {req.ContractName},
		"compilerversion":       {req.CompilerVersion},
		"constructorArguements": {hex.EncodeToString(req.ConstructorArgs)},
	}

	for attempt := 1; ; attempt++ {
		resp, err := c.do(ctx, http.MethodPost, form)
		if err != nil {
			return "", err
		}
		if resp.Status == "1" {
			return resp.Result, nil
		}
		if !strings.Contains(resp.Result, "Unable to locate ContractCode") || attempt >= c.maxAttempts {
			return "", fmt.Errorf("%w: %s", ErrVerificationFailed, resp.Result)
		}

		c.logger.Debug("explorer has not indexed the contract yet", slog.Int("attempt", attempt))
		if err := sleep(ctx, c.pollInterval); err != nil {
			return "", err
		}
	}
}

func (c *Client) do(ctx context.Context, method string, params url.Values) (*apiResponse, error) {
	params.Set("apikey", c.apiKey)

	var (
		req *http.Request
		err error
	)
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+"?"+params.Encode(), nil)
	} else {
		q := url.Values{"chainid": params["chainid"]}
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+"?"+q.Encode(), strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerUserAgent, userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("explorer returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &out, nil
}

func isAlreadyVerified(s string) bool {
	return strings.Contains(strings.ToLower(s), "already verified")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
