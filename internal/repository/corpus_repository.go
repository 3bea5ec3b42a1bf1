package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"psi-rag/internal/models"
	"psi-rag/pkg/apperrors"

	"go.uber.org/zap"
)

// CorpusRepository reads and writes the per-category JSON corpus files.
// Each file holds an array of {id, category, content, metadata, created_at}
// records; created_at is optional.
type CorpusRepository struct {
	dir    string
	mu     sync.Mutex
	logger *zap.Logger
}

func NewCorpusRepository(dir string, logger *zap.Logger) *CorpusRepository {
	return &CorpusRepository{
		dir:    dir,
		logger: logger,
	}
}

type corpusRecord struct {
	ID        *string        `json:"id"`
	Category  *string        `json:"category"`
	Content   *string        `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
}

func (r *CorpusRepository) Dir() string {
	return r.dir
}

// Load parses one corpus file. A single invalid record rejects the whole file
// with ErrMalformedCorpus.
func (r *CorpusRepository) Load(path string) ([]*models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file %s: %w", path, err)
	}

	var records []corpusRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrMalformedCorpus, filepath.Base(path), err)
	}

	docs := make([]*models.Document, 0, len(records))
	for i, rec := range records {
		if err := rec.validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: record %d: %v", apperrors.ErrMalformedCorpus, filepath.Base(path), i, err)
		}
		doc := &models.Document{
			ID:       *rec.ID,
			Category: *rec.Category,
			Content:  *rec.Content,
			Metadata: rec.Metadata,
		}
		if rec.CreatedAt != nil {
			doc.CreatedAt = *rec.CreatedAt
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (rec corpusRecord) validate() error {
	switch {
	case rec.ID == nil || *rec.ID == "":
		return errors.New("missing id")
	case rec.Content == nil || strings.TrimSpace(*rec.Content) == "":
		return errors.New("missing content")
	case rec.Category == nil || *rec.Category == "":
		return errors.New("missing category")
	case rec.Metadata == nil:
		return errors.New("missing metadata")
	}
	return nil
}

// FileForCategory returns the corpus file path that holds a category.
func (r *CorpusRepository) FileForCategory(category string) (string, error) {
	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(category), " ", "_"))
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: invalid category %q", apperrors.ErrInvalidInput, category)
	}
	return filepath.Join(r.dir, name+".json"), nil
}

// CategoryFiles lists the *.json files of the corpus directory in name order.
// Hidden files are skipped; the seed tool keeps its state there.
func (r *CorpusRepository) CategoryFiles() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(r.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list corpus files: %w", err)
	}
	files := matches[:0]
	for _, path := range matches {
		if !strings.HasPrefix(filepath.Base(path), ".") {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

// UpsertToCategoryFile replaces the record with the same id in the category
// file, or appends it. The file is rewritten atomically.
func (r *CorpusRepository) UpsertToCategoryFile(doc *models.Document) error {
	path, err := r.FileForCategory(doc.Category)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var records []json.RawMessage
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("%w: %s: %v", apperrors.ErrMalformedCorpus, filepath.Base(path), err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("failed to read corpus file %s: %w", path, err)
	}

	encoded, err := encodeRecord(doc)
	if err != nil {
		return err
	}

	replaced := false
	for i, raw := range records {
		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &head); err == nil && head.ID == doc.ID {
			records[i] = encoded
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, encoded)
	}

	if err := r.writeAtomic(path, records); err != nil {
		return err
	}

	r.logger.Debug("Corpus file updated",
		zap.String("file", filepath.Base(path)),
		zap.String("doc_id", doc.ID),
		zap.Bool("replaced", replaced),
	)
	return nil
}

// CreateCategoryFile writes docs as a new category file. It returns false
// without touching the disk when the file already exists.
func (r *CorpusRepository) CreateCategoryFile(category string, docs []*models.Document) (bool, error) {
	path, err := r.FileForCategory(category)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	records := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		encoded, err := encodeRecord(d)
		if err != nil {
			return false, err
		}
		records = append(records, encoded)
	}

	if err := r.writeAtomic(path, records); err != nil {
		return false, err
	}
	return true, nil
}

func encodeRecord(d *models.Document) (json.RawMessage, error) {
	metadata := d.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	rec := corpusRecord{
		ID:       &d.ID,
		Category: &d.Category,
		Content:  &d.Content,
		Metadata: metadata,
	}
	if !d.CreatedAt.IsZero() {
		createdAt := d.CreatedAt.UTC()
		rec.CreatedAt = &createdAt
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("failed to encode document %s: %w", d.ID, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (r *CorpusRepository) writeAtomic(path string, records []json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create corpus dir: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode corpus file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace corpus file: %w", err)
	}
	return nil
}
