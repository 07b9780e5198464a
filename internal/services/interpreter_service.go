package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"dayflow/internal/engine"
	"dayflow/internal/models"
)

// InterpreterService calls the external natural-language interpreter. The
// boundary is strict: one timeout-bounded attempt, one retry on timeout, and
// a classified error when the reply cannot be used. Callers decide how to
// degrade (clarification fallback or the local keyword parser).
type InterpreterService struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
}

// NewInterpreterService creates a new interpreter client. An empty baseURL
// disables the remote boundary entirely (Available returns false).
func NewInterpreterService(baseURL string, timeout time.Duration, rps float64) *InterpreterService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if rps <= 0 {
		rps = 2
	}

	return &InterpreterService{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

// Available reports whether a remote interpreter is configured
func (s *InterpreterService) Available() bool {
	return s.baseURL != ""
}

// Interpret sends one conversation turn to the interpreter. A timed-out
// first attempt is retried once; a second timeout or a malformed reply
// surfaces as a classified error.
func (s *InterpreterService) Interpret(ctx context.Context, req *models.InterpreterRequest) (*models.InterpreterResponse, error) {
	if !s.Available() {
		return nil, errors.New("interpreter not configured")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("interpreter rate limit wait: %w", err)
	}

	resp, err := s.doInterpret(ctx, req)
	if err == nil {
		return resp, nil
	}

	if isTimeout(err) {
		log.Printf("⚠️  Interpreter timed out, retrying once: %v", err)
		resp, retryErr := s.doInterpret(ctx, req)
		if retryErr == nil {
			return resp, nil
		}
		if isTimeout(retryErr) {
			return nil, engine.NewInterpreterTimeout(retryErr)
		}
		return nil, retryErr
	}

	return nil, err
}

func (s *InterpreterService) doInterpret(ctx context.Context, req *models.InterpreterRequest) (*models.InterpreterResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal interpreter request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, s.baseURL+"/interpret", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build interpreter request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("interpreter request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1024))
		return nil, engine.NewInterpreterMalformed(
			fmt.Errorf("interpreter returned status %d: %s", httpResp.StatusCode, string(data)))
	}

	var resp models.InterpreterResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, engine.NewInterpreterMalformed(err)
	}

	if resp.Mode == "" {
		return nil, engine.NewInterpreterMalformed(errors.New("reply is missing mode"))
	}

	return &resp, nil
}

// isTimeout reports whether an interpreter call failed on deadline rather
// than on a protocol-level problem.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
