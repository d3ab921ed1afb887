package pricing

import (
	"context"
	"fmt"
	"slices"

	"AutoValue/internal/domain/models"
	domsvc "AutoValue/internal/domain/service"
)

const defaultPredictPath = "/invocations"

// HTTPPipelinePredictor scores rows against a served price pipeline using the
// MLflow dataframe_split wire format.
type HTTPPipelinePredictor struct {
	base     *HTTPServiceBase
	path     string
	manifest models.ModelManifest
}

// NewHTTPPipelinePredictor builds a predictor for the manifest's endpoint.
func NewHTTPPipelinePredictor(m models.ModelManifest) *HTTPPipelinePredictor {
	path := m.PredictPath
	if path == "" {
		path = defaultPredictPath
	}
	return &HTTPPipelinePredictor{
		base:     NewHTTPServiceBase(m.Endpoint, m.Timeout),
		path:     path,
		manifest: m,
	}
}

// Manifest returns the manifest the predictor was built from.
func (p *HTTPPipelinePredictor) Manifest() models.ModelManifest { return p.manifest }

type dataframeSplit struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

type predictReq struct {
	DataframeSplit dataframeSplit `json:"dataframe_split"`
}

type predictResp struct {
	Predictions []float64 `json:"predictions"`
}

// Predict sends all rows in one request. Every row must share the first row's columns.
func (p *HTTPPipelinePredictor) Predict(ctx context.Context, rows []*models.Record) ([]float64, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	cols := rows[0].Columns()
	data := make([][]any, 0, len(rows))
	for i, r := range rows {
		if i > 0 && !slices.Equal(r.Columns(), cols) {
			return nil, fmt.Errorf("row %d: column set differs from row 0", i)
		}
		data = append(data, r.Values())
	}

	var resp predictResp
	if err := p.base.PostJSON(ctx, p.path, predictReq{DataframeSplit: dataframeSplit{Columns: cols, Data: data}}, &resp); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(resp.Predictions) != len(rows) {
		return nil, fmt.Errorf("predict: got %d predictions for %d rows", len(resp.Predictions), len(rows))
	}
	return resp.Predictions, nil
}

var _ domsvc.Predictor = (*HTTPPipelinePredictor)(nil)
