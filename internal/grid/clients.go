package grid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/reports"
)

// CaseClient — NetworkLoader поверх HTTP API case-сервиса.
type CaseClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCaseClient создаёт клиент к case-сервису.
func NewCaseClient(baseURL string) *CaseClient {
	return &CaseClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// LoadNetwork загружает сериализованную сетевую модель case.
// GET /api/v1/cases/{id}/network
func (c *CaseClient) LoadNetwork(ctx context.Context, caseID uuid.UUID) (*Network, error) {
	url := c.baseURL + "/api/v1/cases/" + caseID.String() + "/network"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load network for case %s: %w", caseID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("load network for case %s: status %d: %s", caseID, resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read network for case %s: %w", caseID, err)
	}

	format := resp.Header.Get("X-Network-Format")
	if format == "" {
		format = "xiidm"
	}

	return &Network{CaseID: caseID, Format: format, Data: data}, nil
}

// ModificationClient — ModificationApplier поверх HTTP API
// сервиса модификаций.
type ModificationClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewModificationClient создаёт клиент к сервису модификаций.
func NewModificationClient(baseURL string, logger *slog.Logger) *ModificationClient {
	return &ModificationClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		logger: logger,
	}
}

// Apply применяет модификации к сети по одной, best-effort:
// ошибка отдельной модификации пишется в отчёт и в лог,
// остальные модификации всё равно применяются.
// POST /api/v1/modifications/{id}/apply
func (c *ModificationClient) Apply(ctx context.Context, network *Network, modificationIDs []uuid.UUID, report *reports.Node) {
	for _, modID := range modificationIDs {
		if err := c.applyOne(ctx, network, modID); err != nil {
			c.logger.Warn("modification not applied",
				"case_id", network.CaseID,
				"modification_id", modID,
				"error", err,
			)
			report.Add(fmt.Sprintf("modification %s not applied: %v", modID, err), reports.SeverityWarn)
			continue
		}
		report.Add(fmt.Sprintf("modification %s applied", modID), reports.SeverityInfo)
	}
}

func (c *ModificationClient) applyOne(ctx context.Context, network *Network, modID uuid.UUID) error {
	url := c.baseURL + "/api/v1/modifications/" + modID.String() + "/apply"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(network.Data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Network-Format", network.Format)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	// Сервис возвращает модель с применённой модификацией
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read modified network: %w", err)
	}
	network.Data = data

	return nil
}

// EngineClient — ComputationEngine поверх HTTP API вычислительного
// сервиса. Один клиент на тип расчёта: kind определяет, каким тегом
// помечается возвращаемый результат.
type EngineClient struct {
	baseURL    string
	kind       domain.ResultKind
	httpClient *http.Client
}

// NewEngineClient создаёт клиент к вычислительному сервису.
func NewEngineClient(baseURL string, kind domain.ResultKind) *EngineClient {
	return &EngineClient{
		baseURL: baseURL,
		kind:    kind,
		// Расчёты длинные; таймаут — забота вызывающего слоя через ctx
		httpClient: &http.Client{},
	}
}

// runRequest — тело запроса на расчёт.
type runRequest struct {
	CaseID  uuid.UUID       `json:"case_id"`
	Format  string          `json:"format"`
	Network []byte          `json:"network"`
	Config  json.RawMessage `json:"config"`
}

// runResponse — ответ вычислительного сервиса.
type runResponse struct {
	ResultID uuid.UUID `json:"result_id"`
}

// Run запускает расчёт и возвращает handle результата.
// POST /api/v1/run
func (c *EngineClient) Run(ctx context.Context, network *Network, config domain.ProcessConfig, report *reports.Node) (domain.ResultInfos, error) {
	configJSON, err := json.Marshal(config)
	if err != nil {
		return domain.ResultInfos{}, fmt.Errorf("marshal config: %w", err)
	}

	body, err := json.Marshal(runRequest{
		CaseID:  network.CaseID,
		Format:  network.Format,
		Network: network.Data,
		Config:  configJSON,
	})
	if err != nil {
		return domain.ResultInfos{}, fmt.Errorf("marshal run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/run", bytes.NewReader(body))
	if err != nil {
		return domain.ResultInfos{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ResultInfos{}, fmt.Errorf("run computation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.ResultInfos{}, fmt.Errorf("run computation: status %d: %s", resp.StatusCode, string(respBody))
	}

	var result runResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.ResultInfos{}, fmt.Errorf("decode run response: %w", err)
	}

	report.Add(fmt.Sprintf("computation finished, result %s", result.ResultID), reports.SeverityInfo)

	return domain.ResultInfos{ResultID: result.ResultID, Kind: c.kind}, nil
}
