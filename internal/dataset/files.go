package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/agenthands/personav/internal/core/model"
)

// ReadJSONGz decodes a gzip-compressed JSON document into v.
func ReadJSONGz(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()
	return json.NewDecoder(zr).Decode(v)
}

// WriteJSONGz writes v as gzip-compressed JSON, creating parent directories.
func WriteJSONGz(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(f)
	if err := json.NewEncoder(zw).Encode(v); err != nil {
		zw.Close()
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteJSON writes v as indented JSON, creating parent directories.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return os.WriteFile(path, b, 0o644)
}

// ReadJSON decodes a plain JSON file into v.
func ReadJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// CategoryMappingFile is the category index document consumed by the
// navigation task.
type CategoryMappingFile struct {
	TaskCategories  map[string]int `json:"category_to_task_category_id"`
	SceneCategories map[string]int `json:"category_to_scene_annotation_category_id"`
}

func NewCategoryMappingFile(mapping map[string]int) CategoryMappingFile {
	return CategoryMappingFile{TaskCategories: mapping, SceneCategories: mapping}
}

// ReadResponseRecords loads the response records written by the episode
// step, as consumed by the stats command.
func ReadResponseRecords(path string) ([]model.ResponseRecord, error) {
	var records []model.ResponseRecord
	if err := ReadJSON(path, &records); err != nil {
		return nil, fmt.Errorf("failed to read response records %s: %w", path, err)
	}
	return records, nil
}
