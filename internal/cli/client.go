package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// ExecutionResponse — execution из API.
type ExecutionResponse struct {
	ID          string         `json:"id"`
	ProcessType string         `json:"process_type"`
	CaseID      string         `json:"case_id"`
	Status      string         `json:"status"`
	EnvName     string         `json:"env_name,omitempty"`
	ScheduledAt string         `json:"scheduled_at"`
	StartedAt   string         `json:"started_at,omitempty"`
	CompletedAt string         `json:"completed_at,omitempty"`
	Steps       []StepResponse `json:"steps,omitempty"`
}

// StepResponse — шаг execution из API.
type StepResponse struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Order       int          `json:"order"`
	Status      string       `json:"status"`
	Result      *ResultInfos `json:"result,omitempty"`
	ReportID    string       `json:"report_id,omitempty"`
	StartedAt   string       `json:"started_at,omitempty"`
	CompletedAt string       `json:"completed_at,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// ResultInfos — ссылка на результат шага.
type ResultInfos struct {
	ResultID string `json:"result_id"`
	Kind     string `json:"kind"`
}

// ResultResponse — результат с payload'ом из API.
// Payload непрозрачен и передаётся как base64-байты.
type ResultResponse struct {
	StepID   string `json:"step_id"`
	StepType string `json:"step_type"`
	ResultID string `json:"result_id"`
	Kind     string `json:"kind"`
	Data     []byte `json:"data"`
}

// ReportResponse — отчёт execution из API.
type ReportResponse struct {
	ReportID string          `json:"report_id"`
	Report   json.RawMessage `json:"report"`
}

// --- Request types ---

// CreateExecutionRequest — запуск процесса.
type CreateExecutionRequest struct {
	ProcessType string          `json:"process_type"`
	Config      json.RawMessage `json:"config"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Gridflow API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Executions ---

// ListExecutions возвращает все executions.
func (c *Client) ListExecutions() ([]ExecutionResponse, error) {
	var executions []ExecutionResponse
	err := c.list("/api/v1/executions", &executions)
	return executions, err
}

// CreateExecution запускает процесс.
func (c *Client) CreateExecution(processType string, config json.RawMessage) (*ExecutionResponse, error) {
	req := CreateExecutionRequest{ProcessType: processType, Config: config}
	var execution ExecutionResponse
	err := c.post("/api/v1/executions", req, &execution)
	return &execution, err
}

// GetExecution возвращает execution по ID.
func (c *Client) GetExecution(id string) (*ExecutionResponse, error) {
	var execution ExecutionResponse
	err := c.get("/api/v1/executions/"+id, &execution)
	return &execution, err
}

// DeleteExecution удаляет execution.
func (c *Client) DeleteExecution(id string) error {
	return c.delete("/api/v1/executions/" + id)
}

// ListSteps возвращает шаги execution.
func (c *Client) ListSteps(executionID string) ([]StepResponse, error) {
	var steps []StepResponse
	err := c.list("/api/v1/executions/"+executionID+"/steps", &steps)
	return steps, err
}

// ListReports возвращает отчёты execution.
func (c *Client) ListReports(executionID string) ([]ReportResponse, error) {
	var reports []ReportResponse
	err := c.list("/api/v1/executions/"+executionID+"/reports", &reports)
	return reports, err
}

// ListResults возвращает результаты execution.
func (c *Client) ListResults(executionID string) ([]ResultResponse, error) {
	var results []ResultResponse
	err := c.list("/api/v1/executions/"+executionID+"/results", &results)
	return results, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, result any) error {
	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
