package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultHuggingFaceBaseURL = "https://router.huggingface.co/hf-inference/models"
	huggingFaceBatchSize      = 32
)

// HuggingFaceEmbedder generates embeddings with the Hugging Face Inference
// API feature-extraction pipeline. Sentence-transformers models return one
// pooled vector per input.
type HuggingFaceEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	baseURL    string
	httpClient *http.Client
}

// NewHuggingFaceEmbedder creates a new Hugging Face embedder. baseURL may be
// empty to use the hosted inference router.
func NewHuggingFaceEmbedder(apiKey, model string, dimensions int, baseURL string) *HuggingFaceEmbedder {
	if baseURL == "" {
		baseURL = defaultHuggingFaceBaseURL
	}
	return &HuggingFaceEmbedder{
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

func (e *HuggingFaceEmbedder) Name() string {
	return e.model
}

func (e *HuggingFaceEmbedder) Dimensions() int {
	return e.dimensions
}

type hfEmbedRequest struct {
	Inputs  []string         `json:"inputs"`
	Options hfRequestOptions `json:"options"`
}

type hfRequestOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

func (e *HuggingFaceEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += huggingFaceBatchSize {
		batch := texts[i:min(i+huggingFaceBatchSize, len(texts))]
		vecs, err := e.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		results = append(results, vecs...)
	}
	return results, nil
}

func (e *HuggingFaceEmbedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	body, err := json.Marshal(hfEmbedRequest{
		Inputs:  batch,
		Options: hfRequestOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal huggingface embed request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/pipeline/feature-extraction", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create huggingface embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("huggingface embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("huggingface embed API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var vecs [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vecs); err != nil {
		return nil, fmt.Errorf("decode huggingface embed response: %w", err)
	}
	if err := checkResult("huggingface", vecs, len(batch), e.dimensions); err != nil {
		return nil, err
	}
	return vecs, nil
}
