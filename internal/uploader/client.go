package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxResponseBody caps how much of a response body is kept for logging.
const maxResponseBody = 64 << 10

// Response is the server reply to one invoice.
type Response struct {
	StatusCode int
	Body       string
}

// TransmissionError reports an invoice the server did not accept: a network
// failure, a timeout or a non-2xx status. The invoice is skipped and never
// retried.
type TransmissionError struct {
	// OrderCode is the invoice note, which carries the pretix order code.
	OrderCode    string
	Counterparty string

	// StatusCode and Body are zero when no response was received.
	StatusCode int
	Body       string

	Err error
}

func (e *TransmissionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("invoice %q for %q rejected: HTTP %d: %s", e.OrderCode, e.Counterparty, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("invoice %q for %q not sent: %v", e.OrderCode, e.Counterparty, e.Err)
}

func (e *TransmissionError) Unwrap() error { return e.Err }

// ErrStatus is wrapped by TransmissionError for non-2xx responses.
var ErrStatus = errors.New("unexpected HTTP status")

// Client posts signed invoices to the ifirma API.
type Client struct {
	httpClient *http.Client
	url        string
	signer     *Signer
	timeout    time.Duration
}

// NewClient creates a Client posting to url. A nil httpClient selects
// http.DefaultClient. timeout bounds each request; zero disables it.
func NewClient(url string, signer *Signer, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		url:        url,
		signer:     signer,
		timeout:    timeout,
	}
}

// Send signs body and posts it unchanged. A non-2xx status is returned as an
// error wrapping ErrStatus together with the response.
func (c *Client) Send(ctx context.Context, body []byte) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Authentication", c.signer.AuthHeader(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(data)),
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, fmt.Errorf("%w %d", ErrStatus, resp.StatusCode)
	}

	return out, nil
}
