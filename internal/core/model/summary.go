package model

import "github.com/agenthands/personav/internal/core/geometry"

// SelectedItem is one (object, owner) pair picked by the LLM for a summary.
// The remaining fields are filled in from the scene annotations.
type SelectedItem struct {
	ObjectID       string         `json:"object_id"`
	Owner          string         `json:"owner"`
	ObjectCategory string         `json:"object_category,omitempty"`
	Position       *geometry.Vec3 `json:"position,omitempty"`
	FloorID        *int           `json:"floor_id,omitempty"`
	Description    []string       `json:"description,omitempty"`
	Room           string         `json:"room,omitempty"`
}

type Summary struct {
	SelectedItems    []SelectedItem `json:"selected_items"`
	Summary          string         `json:"summary"`
	ExtractedSummary []string       `json:"extracted_summary"`
}

// SummaryResponse is the JSON payload the LLM returns for one prompt.
type SummaryResponse struct {
	Summaries []Summary `json:"summaries"`
}

// SummaryBatch is a Summary enriched with object metadata and one query list
// per selected item.
type SummaryBatch struct {
	SelectedItems    []SelectedItem `json:"selected_items"`
	Summary          string         `json:"summary"`
	ExtractedSummary []string       `json:"extracted_summary"`
	Queries          [][]string     `json:"queries"`
}

// ResponseRecord keeps a parsed response together with where it came from.
type ResponseRecord struct {
	SceneName string          `json:"scene_name"`
	FloorID   string          `json:"floor_id"`
	CustomID  string          `json:"custom_id"`
	Response  SummaryResponse `json:"response"`
}
