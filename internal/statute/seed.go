package statute

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/docket/internal/embedding"
	"github.com/ppiankov/docket/internal/model"
	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk provision corpus format
type seedFile struct {
	Provisions []model.Provision `yaml:"provisions"`
}

// importBatchSize bounds provisions embedded per upstream call
const importBatchSize = 64

// LoadSeedFile reads provisions from a YAML corpus
func LoadSeedFile(path string) ([]model.Provision, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a YAML corpus, rejecting provisions without a category or content
func ParseSeed(data []byte) ([]model.Provision, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, p := range f.Provisions {
		if strings.TrimSpace(p.Category) == "" {
			return nil, fmt.Errorf("provision %d: category is required", i)
		}
		if strings.TrimSpace(p.Content) == "" {
			return nil, fmt.Errorf("provision %d: content is required", i)
		}
		if (p.ArticleNumber == nil || *p.ArticleNumber == "") && p.Title == "" {
			return nil, fmt.Errorf("provision %d: article_number or title is required", i)
		}
	}
	return f.Provisions, nil
}

// Import embeds provisions and upserts them into repo. Returns the number stored.
func Import(ctx context.Context, repo Repository, engine embedding.Engine, provisions []model.Provision) (int, error) {
	stored := 0
	for start := 0; start < len(provisions); start += importBatchSize {
		end := min(start+importBatchSize, len(provisions))
		batch := append([]model.Provision(nil), provisions[start:end]...)

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = strings.TrimSpace(p.Title + "\n" + p.Content)
		}

		vectors, err := engine.EmbedBatch(ctx, texts)
		if err != nil {
			return stored, fmt.Errorf("embed provisions %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return stored, fmt.Errorf("embed provisions %d-%d: got %d vectors", start, end-1, len(vectors))
		}
		for i := range batch {
			batch[i].Embedding = vectors[i]
		}

		if err := repo.Upsert(ctx, batch); err != nil {
			return stored, err
		}
		stored += len(batch)
	}
	return stored, nil
}
