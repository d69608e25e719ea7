package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client — HTTP-клиент к report store сервису.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент к report store.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendReport публикует дерево отчёта.
// PUT /api/v1/reports/{id}
func (c *Client) SendReport(ctx context.Context, reportID uuid.UUID, root *Node) error {
	body, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.reportURL(reportID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send report %s: %w", reportID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError("send report", reportID, resp)
	}
	return nil
}

// GetReport возвращает дерево отчёта по id.
// GET /api/v1/reports/{id}
func (c *Client) GetReport(ctx context.Context, reportID uuid.UUID) (*Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.reportURL(reportID), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", reportID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, statusError("get report", reportID, resp)
	}

	var root Node
	if err := json.NewDecoder(resp.Body).Decode(&root); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", reportID, err)
	}
	return &root, nil
}

// DeleteReport удаляет отчёт по id.
// DELETE /api/v1/reports/{id}
func (c *Client) DeleteReport(ctx context.Context, reportID uuid.UUID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.reportURL(reportID), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete report %s: %w", reportID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return statusError("delete report", reportID, resp)
	}
	return nil
}

func (c *Client) reportURL(reportID uuid.UUID) string {
	return c.baseURL + "/api/v1/reports/" + reportID.String()
}

func statusError(op string, reportID uuid.UUID, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s %s: status %d: %s", op, reportID, resp.StatusCode, string(body))
}
