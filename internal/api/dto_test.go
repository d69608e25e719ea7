package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Gridflow/internal/domain"
	"github.com/shaiso/Gridflow/internal/record"
)

// Payload результата непрозрачен для control plane: провайдер может
// вернуть что угодно, в том числе не-JSON байты. Ответ со списком
// результатов обязан оставаться валидным JSON и нести payload без потерь.
func TestListResultsOpaquePayload(t *testing.T) {
	payload := []byte{0x01, 0xff, 0xfe, 0x00, 'z'}
	stepResult := record.StepResult{
		StepID:   uuid.New(),
		StepType: domain.StepRunComputation,
		Result: domain.ResultInfos{
			ResultID: uuid.New(),
			Kind:     domain.ResultKindLoadFlow,
		},
		Data: payload,
	}

	rec := httptest.NewRecorder()
	List(rec, []ResultResponse{ResultFromRecord(stepResult)}, 1)

	resp := rec.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !json.Valid(body) {
		t.Fatalf("response body is not valid JSON: %q", body)
	}

	var envelope struct {
		Data  []ResultResponse `json:"data"`
		Total int              `json:"total"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 {
		t.Fatalf("got %d results, want 1", len(envelope.Data))
	}

	got := envelope.Data[0]
	if got.ResultID != stepResult.Result.ResultID {
		t.Errorf("result id = %s, want %s", got.ResultID, stepResult.Result.ResultID)
	}
	if string(got.Data) != string(payload) {
		t.Errorf("payload = %v, want %v", got.Data, payload)
	}
}
