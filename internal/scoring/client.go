package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"listenlab/internal/domain"
)

// Client submits answers to a remote scoring collaborator over HTTP.
// Any transport or parse failure is treated uniformly as "submission
// failed": the caller sees domain.ErrScoringUnavailable, never a partial
// result.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Grade(ctx context.Context, req domain.GradeRequest) (domain.GradeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.GradeResult{}, fmt.Errorf("marshal grade request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.GradeResult{}, fmt.Errorf("build grade request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.GradeResult{}, fmt.Errorf("%w: %v", domain.ErrScoringUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.GradeResult{}, fmt.Errorf("%w: status %d", domain.ErrScoringUnavailable, resp.StatusCode)
	}

	var result domain.GradeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.GradeResult{}, fmt.Errorf("%w: decode response: %v", domain.ErrScoringUnavailable, err)
	}
	return result, nil
}
