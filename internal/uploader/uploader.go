// =============================================================================
// pretix-ifirma - Invoice Uploader
// =============================================================================
//
// This module sends stored invoices to the ifirma API.
//
// UPLOAD PIPELINE (per invoice):
//   1. Normalize a copy of the invoice (see normalize.go)
//   2. Encode it as canonical compact JSON
//   3. Sign the exact bytes and POST them
//   4. Record the outcome; a failure never stops the batch
//
// CONCURRENCY:
//   Invoices are uploaded by up to Options.Workers goroutines. Each invoice
//   owns its copy, body and signature, so workers share nothing but the HTTP
//   client. Results are always reported in input order.
//
// =============================================================================

package uploader

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ginjaninja78/pretix-ifirma/internal/invoice"
)

// Logger is the logging interface the uploader depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options control an upload run.
type Options struct {
	// Workers is the number of concurrent uploads. Values below 1 mean 1.
	Workers int

	// DryRun normalizes and signs every invoice without sending it.
	DryRun bool
}

// Result is the outcome for one invoice.
type Result struct {
	// Index is the position of the invoice in the input.
	Index        int
	OrderCode    string
	Counterparty string

	// Body is the canonical request body and Signature its digest.
	Body      []byte
	Signature string

	// Response is nil in dry-run mode and when no response arrived.
	Response *Response

	// Err is a *TransmissionError when the invoice was not accepted.
	Err error
}

// Report summarizes an upload run. In dry-run mode Sent counts the invoices
// that were prepared and signed.
type Report struct {
	Results  []Result
	Sent     int
	Failed   int
	Duration time.Duration
}

// Uploader sends invoices.
type Uploader struct {
	normalizer *Normalizer
	signer     *Signer
	client     *Client
	logger     Logger
	opts       Options
}

// New creates an Uploader. client may be nil when opts.DryRun is set.
func New(normalizer *Normalizer, signer *Signer, client *Client, logger Logger, opts Options) *Uploader {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Uploader{
		normalizer: normalizer,
		signer:     signer,
		client:     client,
		logger:     logger,
		opts:       opts,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run uploads invoices and reports every outcome in input order. Cancelling
// ctx fails the invoices that have not been sent yet.
func (u *Uploader) Run(ctx context.Context, invoices []invoice.Invoice) *Report {
	startTime := time.Now()
	report := &Report{Results: make([]Result, len(invoices))}

	u.logger.Info("uploading invoices", "count", len(invoices), "workers", u.opts.Workers, "dry_run", u.opts.DryRun)

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < u.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				report.Results[i] = u.upload(ctx, i, invoices[i])
			}
		}()
	}

	for i := range invoices {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	for _, r := range report.Results {
		if r.Err != nil {
			report.Failed++
		} else {
			report.Sent++
		}
	}
	report.Duration = time.Since(startTime)

	u.logger.Info("upload finished",
		"total", len(invoices),
		"sent", report.Sent,
		"failed", report.Failed,
		"duration", report.Duration)

	return report
}

// upload processes a single invoice.
func (u *Uploader) upload(ctx context.Context, i int, inv invoice.Invoice) Result {
	if err := ctx.Err(); err != nil {
		return u.failed(i, inv, nil, err)
	}

	body, err := u.normalizer.Prepare(inv)
	if err != nil {
		return u.failed(i, inv, nil, err)
	}

	result := Result{
		Index:        i,
		OrderCode:    inv.Note,
		Counterparty: inv.Counterparty.Name,
		Body:         body,
		Signature:    u.signer.Sign(body),
	}

	if u.opts.DryRun {
		u.logger.Info("dry run: invoice not sent",
			"order_code", result.OrderCode,
			"counterparty", result.Counterparty,
			"signature", result.Signature,
			"body", string(body))
		return result
	}

	resp, err := u.client.Send(ctx, body)
	result.Response = resp
	if err != nil {
		failed := u.failed(i, inv, resp, err)
		failed.Body = body
		failed.Signature = result.Signature
		return failed
	}

	u.logger.Info("invoice sent",
		"order_code", result.OrderCode,
		"counterparty", result.Counterparty,
		"status", resp.StatusCode,
		"response", resp.Body)

	return result
}

// failed builds and logs the result for an invoice that was not accepted.
func (u *Uploader) failed(i int, inv invoice.Invoice, resp *Response, err error) Result {
	tErr := &TransmissionError{
		OrderCode:    inv.Note,
		Counterparty: inv.Counterparty.Name,
		Err:          err,
	}
	if resp != nil {
		tErr.StatusCode = resp.StatusCode
		tErr.Body = resp.Body
	}

	args := []any{
		"order_code", tErr.OrderCode,
		"counterparty", tErr.Counterparty,
		"status", tErr.StatusCode,
		"error", err,
	}
	if resp != nil {
		args = append(args, "response", resp.Body)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		args = append(args, "timeout", true)
	}
	u.logger.Error("invoice not sent", args...)

	return Result{
		Index:        i,
		OrderCode:    tErr.OrderCode,
		Counterparty: tErr.Counterparty,
		Response:     resp,
		Err:          tErr,
	}
}
