package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/docket/internal/casefile"
	"github.com/ppiankov/docket/internal/model"
)

// Analyzer runs one analysis
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error)
}

// CaseJob represents the analysis of one case file
type CaseJob struct {
	Path     string
	Analyzer Analyzer
}

// Execute executes the case job
func (j *CaseJob) Execute(ctx context.Context) Result {
	req, err := casefile.Load(j.Path)
	if err != nil {
		return &CaseResult{Path: j.Path, Error: err}
	}

	result, err := j.Analyzer.Analyze(ctx, req)
	if err != nil {
		return &CaseResult{Path: j.Path, Error: err}
	}
	return &CaseResult{Path: j.Path, Result: result}
}

// CaseResult represents the result of a case job
type CaseResult struct {
	Path   string
	Result *model.AnalysisResult
	Error  error
}

// GetError returns the error from the case result
func (r *CaseResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes multiple case files concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessCases analyzes the case files concurrently; results are sorted by path
func (b *BatchProcessor) ProcessCases(ctx context.Context, paths []string) []*CaseResult {
	if len(paths) == 0 {
		return []*CaseResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, path := range paths {
		pool.Submit(&CaseJob{
			Path:     path,
			Analyzer: b.analyzer,
		})
	}

	results := pool.Wait()

	caseResults := make([]*CaseResult, 0, len(results))
	for _, result := range results {
		caseResults = append(caseResults, result.(*CaseResult))
	}
	sort.Slice(caseResults, func(i, j int) bool {
		return caseResults[i].Path < caseResults[j].Path
	})

	return caseResults
}

// ProcessSource resolves case files from a directory or list file and analyzes them
func (b *BatchProcessor) ProcessSource(ctx context.Context, source string) ([]*CaseResult, error) {
	paths, err := ResolveCases(source)
	if err != nil {
		return nil, fmt.Errorf("resolve cases: %w", err)
	}

	return b.ProcessCases(ctx, paths), nil
}

// ResolveCases returns the case files named by source: every case file in a
// directory, or the paths listed in a text file (one per line).
func ResolveCases(source string) ([]string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}

	if !info.IsDir() {
		return ReadCaseList(source)
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !casefile.IsCaseFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(source, entry.Name()))
	}
	sort.Strings(paths)

	return paths, nil
}

// ReadCaseList reads case file paths from a file (one per line). Relative
// paths are resolved against the list file's directory.
func ReadCaseList(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(filePath)

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
