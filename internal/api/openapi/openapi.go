// Пакет openapi — встроенный OpenAPI 3 контракт HTTP API галереи.
// Документ загружается и валидируется при старте, отдаётся в JSON
// на GET /api/openapi.json.
package openapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var specYAML []byte

// Load разбирает и валидирует встроенный документ.
func Load(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора OpenAPI: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("некорректный OpenAPI документ: %w", err)
	}
	return doc, nil
}

// Handler отдаёт OpenAPI документ в JSON.
type Handler struct {
	body []byte
}

// NewHandler загружает документ и подготавливает JSON-представление.
func NewHandler(ctx context.Context) (*Handler, error) {
	doc, err := Load(ctx)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации OpenAPI: %w", err)
	}
	return &Handler{body: body}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.body)
}
