// Package marketdata fetches quotes from the external price API, guarded
// by a shared rate limiter.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"stock_alert_system/errs"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxValidPrice is the upper bound of the accepted price range; anything
// outside (0, maxValidPrice] is rejected as invalid.
var maxValidPrice = decimal.NewFromInt(1_000_000)

// Client calls the quote API for single-symbol price lookups. It performs
// no retries; retry policy belongs to the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *RateLimiter
	log        *zap.SugaredLogger
}

// NewClient creates a quote API client with a bounded request timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration, limiter *RateLimiter, log *zap.SugaredLogger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		limiter:    limiter,
		log:        log,
	}
}

// priceResponse covers both the success and error envelope shapes of the
// quote API. The upstream is untrusted: anything that fits neither shape
// is a parse error.
type priceResponse struct {
	Price   string `json:"price"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Limiter exposes the client's rate limiter so jobs sharing the quota can
// report its status.
func (c *Client) Limiter() *RateLimiter {
	return c.limiter
}

// FetchPrice fetches the current price for symbol. Rate-limit denial,
// transport failures, upstream error envelopes and out-of-range prices
// each map to a distinct error code.
func (c *Client) FetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if !c.limiter.Allow() {
		return decimal.Zero, errs.ErrRateLimited
	}

	reqURL := fmt.Sprintf("%s/price?symbol=%s&apikey=%s",
		c.baseURL, url.QueryEscape(symbol), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return decimal.Zero, errs.Wrap(errs.ErrTransport, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.log.Warnw("Quote request timed out", "symbol", symbol)
			return decimal.Zero, errs.Wrap(errs.ErrTimeout, err)
		}
		c.log.Warnw("Quote request failed", "symbol", symbol, "error", err)
		return decimal.Zero, errs.Wrap(errs.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, errs.Wrap(errs.ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, errs.WithMessage(errs.ErrTransport,
			fmt.Sprintf("quote API returned HTTP %d", resp.StatusCode))
	}

	var parsed priceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return decimal.Zero, errs.Wrap(errs.ErrUpstream, err)
	}

	switch {
	case parsed.Price != "":
		price, err := decimal.NewFromString(parsed.Price)
		if err != nil {
			return decimal.Zero, errs.Wrap(errs.ErrInvalidPrice, err)
		}
		if price.LessThanOrEqual(decimal.Zero) || price.GreaterThan(maxValidPrice) {
			return decimal.Zero, errs.WithMessage(errs.ErrInvalidPrice,
				fmt.Sprintf("invalid price received: $%s", price.String()))
		}
		c.log.Debugw("Fetched price", "symbol", symbol, "price", price.String())
		return price, nil

	case parsed.Status == "error":
		msg := parsed.Message
		if msg == "" {
			msg = "unknown API error"
		}
		return decimal.Zero, errs.WithMessage(errs.ErrUpstream, "API error: "+msg)

	default:
		return decimal.Zero, errs.WithMessage(errs.ErrUpstream, "unexpected API response format")
	}
}

// isTimeout reports whether err represents a request timeout, either from
// the client timeout or a cancelled deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}

// ValidateSymbol checks stock symbol format: non-empty, at most 10
// characters, not all digits, alphanumeric plus dots and hyphens.
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return errs.WithMessage(errs.ErrValidation, "symbol cannot be empty")
	}
	if len(symbol) > 10 {
		return errs.WithMessage(errs.ErrValidation, "symbol too long (max 10 characters)")
	}

	allDigits := true
	for _, r := range symbol {
		if r == '.' || r == '-' {
			allDigits = false
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return errs.WithMessage(errs.ErrValidation, "symbol contains invalid characters")
		}
		if !unicode.IsDigit(r) {
			allDigits = false
		}
	}
	if allDigits {
		return errs.WithMessage(errs.ErrValidation, "symbol cannot contain only numbers")
	}
	return nil
}
