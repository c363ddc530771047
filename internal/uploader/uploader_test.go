package uploader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ginjaninja78/pretix-ifirma/internal/invoice"
)

// captured is a request seen by the test server.
type captured struct {
	header http.Header
	body   []byte
}

// recordingServer answers every request with the status chosen by statusFor
// and records what it received.
type recordingServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []captured
}

func newRecordingServer(t *testing.T, statusFor func(body []byte) int) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		rs.mu.Lock()
		rs.requests = append(rs.requests, captured{header: r.Header.Clone(), body: body})
		rs.mu.Unlock()

		status := statusFor(body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(`{"response":{"Kod":0,"Informacja":"Faktura została wystawiona."}}`))
		} else {
			w.Write([]byte(`{"response":{"Kod":201,"Informacja":"Niepoprawne dane"}}`))
		}
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *recordingServer) seen() []captured {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]captured(nil), rs.requests...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestUploader(url string, opts Options) *Uploader {
	signer := NewSigner(url, testUser, testKeyName, testKey)
	return New(
		NewNormalizer(fixedNow, 7),
		signer,
		NewClient(url, signer, 5*time.Second, nil),
		discardLogger(),
		opts,
	)
}

func batch(codes ...string) []invoice.Invoice {
	out := make([]invoice.Invoice, len(codes))
	for i, code := range codes {
		inv := storedInvoice()
		inv.Note = code
		out[i] = inv
	}
	return out
}

func TestClientSendsSignedBody(t *testing.T) {
	srv := newRecordingServer(t, func([]byte) int { return http.StatusOK })
	signer := NewSigner(srv.URL, testUser, testKeyName, testKey)
	client := NewClient(srv.URL, signer, 5*time.Second, srv.Client())

	body, err := NewNormalizer(fixedNow, 7).Prepare(storedInvoice())
	if err != nil {
		t.Fatal(err)
	}

	resp, err := client.Send(context.Background(), body)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Body, "wystawiona") {
		t.Errorf("Send() = %+v", resp)
	}

	reqs := srv.seen()
	if len(reqs) != 1 {
		t.Fatalf("server saw %d requests, want 1", len(reqs))
	}
	got := reqs[0]

	if string(got.body) != string(body) {
		t.Errorf("transmitted body differs from the signed body:\n%s\n%s", got.body, body)
	}
	if h := got.header.Get("Accept"); h != "application/json" {
		t.Errorf("Accept = %q", h)
	}
	if h := got.header.Get("Content-Type"); h != "application/json; charset=UTF-8" {
		t.Errorf("Content-Type = %q", h)
	}
	wantAuth := "IAPIS user=jan, hmac-sha1=" + signer.Sign(got.body)
	if h := got.header.Get("Authentication"); h != wantAuth {
		t.Errorf("Authentication = %q, want %q", h, wantAuth)
	}
}

func TestClientNon2xx(t *testing.T) {
	srv := newRecordingServer(t, func([]byte) int { return http.StatusBadRequest })
	client := NewClient(srv.URL, NewSigner(srv.URL, testUser, testKeyName, testKey), 5*time.Second, nil)

	resp, err := client.Send(context.Background(), []byte(`{}`))
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("Send() error = %v, want ErrStatus", err)
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest || !strings.Contains(resp.Body, "Niepoprawne") {
		t.Errorf("Send() response = %+v", resp)
	}
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(srv.URL, NewSigner(srv.URL, testUser, testKeyName, testKey), 50*time.Millisecond, nil)

	_, err := client.Send(context.Background(), []byte(`{}`))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Send() error = %v, want deadline exceeded", err)
	}
}

func TestRunContinuesAfterFailure(t *testing.T) {
	srv := newRecordingServer(t, func(body []byte) int {
		if strings.Contains(string(body), `"Uwagi":"BAD01"`) {
			return http.StatusInternalServerError
		}
		return http.StatusOK
	})

	report := newTestUploader(srv.URL, Options{Workers: 1}).Run(context.Background(), batch("A1", "BAD01", "C3"))

	if report.Sent != 2 || report.Failed != 1 {
		t.Errorf("Sent = %d, Failed = %d, want 2 and 1", report.Sent, report.Failed)
	}
	if len(srv.seen()) != 3 {
		t.Errorf("server saw %d requests, want 3", len(srv.seen()))
	}

	failed := report.Results[1]
	var tErr *TransmissionError
	if !errors.As(failed.Err, &tErr) {
		t.Fatalf("Results[1].Err = %v, want *TransmissionError", failed.Err)
	}
	if tErr.OrderCode != "BAD01" || tErr.Counterparty != "Jan Kowalski" || tErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("TransmissionError = %+v", tErr)
	}
	if !errors.Is(failed.Err, ErrStatus) {
		t.Error("TransmissionError does not wrap ErrStatus")
	}
}

func TestRunSequentialPreservesOrder(t *testing.T) {
	srv := newRecordingServer(t, func([]byte) int { return http.StatusOK })
	codes := []string{"A1", "B2", "C3", "D4"}

	report := newTestUploader(srv.URL, Options{Workers: 1}).Run(context.Background(), batch(codes...))

	reqs := srv.seen()
	if len(reqs) != len(codes) {
		t.Fatalf("server saw %d requests, want %d", len(reqs), len(codes))
	}
	for i, code := range codes {
		if !strings.Contains(string(reqs[i].body), `"Uwagi":"`+code+`"`) {
			t.Errorf("request %d = %s, want order %s", i, reqs[i].body, code)
		}
		if report.Results[i].OrderCode != code || report.Results[i].Index != i {
			t.Errorf("Results[%d] = %+v", i, report.Results[i])
		}
	}
}

func TestRunConcurrentReportsInInputOrder(t *testing.T) {
	srv := newRecordingServer(t, func([]byte) int { return http.StatusOK })
	codes := []string{"A1", "B2", "C3", "D4", "E5", "F6", "G7", "H8"}

	report := newTestUploader(srv.URL, Options{Workers: 4}).Run(context.Background(), batch(codes...))

	if report.Sent != len(codes) || report.Failed != 0 {
		t.Errorf("Sent = %d, Failed = %d", report.Sent, report.Failed)
	}
	for i, code := range codes {
		r := report.Results[i]
		if r.OrderCode != code {
			t.Errorf("Results[%d].OrderCode = %s, want %s", i, r.OrderCode, code)
		}
		if !strings.Contains(string(r.Body), `"Uwagi":"`+code+`"`) {
			t.Errorf("Results[%d].Body belongs to another invoice: %s", i, r.Body)
		}
	}
}

func TestRunDryRun(t *testing.T) {
	srv := newRecordingServer(t, func([]byte) int { return http.StatusOK })

	report := newTestUploader(srv.URL, Options{DryRun: true}).Run(context.Background(), batch("A1", "B2"))

	if len(srv.seen()) != 0 {
		t.Errorf("dry run sent %d requests", len(srv.seen()))
	}
	if report.Sent != 2 || report.Failed != 0 {
		t.Errorf("Sent = %d, Failed = %d", report.Sent, report.Failed)
	}
	for _, r := range report.Results {
		if len(r.Body) == 0 || len(r.Signature) != 40 || r.Response != nil {
			t.Errorf("dry run result = %+v", r)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	srv := newRecordingServer(t, func([]byte) int { return http.StatusOK })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := newTestUploader(srv.URL, Options{Workers: 2}).Run(ctx, batch("A1", "B2", "C3"))

	if report.Failed != 3 {
		t.Errorf("Failed = %d, want 3", report.Failed)
	}
	if len(srv.seen()) != 0 {
		t.Errorf("cancelled run sent %d requests", len(srv.seen()))
	}
	if !errors.Is(report.Results[0].Err, context.Canceled) {
		t.Errorf("Results[0].Err = %v, want context.Canceled", report.Results[0].Err)
	}
}

func TestRunEmptyBatch(t *testing.T) {
	report := newTestUploader("http://127.0.0.1:0", Options{}).Run(context.Background(), nil)
	if report.Sent != 0 || report.Failed != 0 || len(report.Results) != 0 {
		t.Errorf("Run(nil) = %+v", report)
	}
}
