// Package nlp runs local ONNX models through hugot: sentence embeddings and
// named-entity recognition without a network collaborator.
package nlp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

const (
	DefaultEmbeddingModel = "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"
	DefaultNERModel       = "KnightsAnalytics/distilbert-NER"
)

// Runtime owns one hugot session and the pipelines created on it.
type Runtime struct {
	session  *hugot.Session
	modelDir string
}

func NewRuntime(modelDir string) (*Runtime, error) {
	if modelDir == "" {
		modelDir = "./models"
	}
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("create hugot session: %w", err)
	}
	return &Runtime{session: session, modelDir: modelDir}, nil
}

func (r *Runtime) Close() error {
	if r == nil || r.session == nil {
		return nil
	}
	return r.session.Destroy()
}

func (r *Runtime) NewEmbedder(modelName string) (*Embedder, error) {
	path, err := prepareModel(r.modelDir, modelName)
	if err != nil {
		return nil, err
	}
	pipeline, err := hugot.NewPipeline(r.session, hugot.FeatureExtractionConfig{
		ModelPath: path,
		Name:      "embedder",
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding pipeline: %w", err)
	}
	return NewEmbedder(pipeline), nil
}

func (r *Runtime) NewEntityExtractor(modelName string, minScore float64) (*EntityExtractor, error) {
	path, err := prepareModel(r.modelDir, modelName)
	if err != nil {
		return nil, err
	}
	pipeline, err := hugot.NewPipeline(r.session, hugot.TokenClassificationConfig{
		ModelPath: path,
		Name:      "ner",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create ner pipeline: %w", err)
	}
	return NewEntityExtractor(pipeline, minScore), nil
}

// prepareModel downloads modelName into dir unless a copy is already there.
func prepareModel(dir, modelName string) (string, error) {
	local := filepath.Join(dir, strings.ReplaceAll(modelName, "/", "_"))
	if _, err := os.Stat(local); err == nil {
		return local, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat model %s: %w", modelName, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory: %w", err)
	}
	opts := hugot.NewDownloadOptions()
	opts.OnnxFilePath = "onnx/model.onnx"
	if strings.HasPrefix(modelName, "KnightsAnalytics/") {
		opts.OnnxFilePath = "model.onnx"
	}
	path, err := hugot.DownloadModel(modelName, dir, opts)
	if err != nil {
		return "", fmt.Errorf("download model %s: %w", modelName, err)
	}
	return path, nil
}
