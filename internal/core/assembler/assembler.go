// Package assembler turns LLM summaries, scene annotations and sampled
// geometry into finished episode records.
package assembler

import (
	"errors"
	"fmt"

	"github.com/agenthands/personav/internal/core/common"
	"github.com/agenthands/personav/internal/core/model"
)

var (
	ErrIncompleteAnnotation = errors.New("object annotation is incomplete")
	ErrUnknownObject        = errors.New("selected object is not in the scene annotations")
)

// ParseResponse decodes the content of one LLM response.
func ParseResponse(content string) (model.SummaryResponse, error) {
	resp, err := common.ParseJSON[model.SummaryResponse](content)
	if err != nil {
		return model.SummaryResponse{}, fmt.Errorf("failed to parse summary response: %w", err)
	}
	return resp, nil
}

// Preprocess enriches every selected item of resp with the annotation of its
// object and builds one query list per item. Every object of the floor must
// carry a description, a position and a floor id.
func Preprocess(resp model.SummaryResponse, objects []model.SceneObject) ([]model.SummaryBatch, error) {
	lookup := make(map[string]model.SceneObject, len(objects))
	for _, o := range objects {
		if len(o.Description) == 0 || o.Position == nil || o.FloorID == nil {
			return nil, fmt.Errorf("%w: %s", ErrIncompleteAnnotation, o.ObjectID)
		}
		lookup[o.ObjectID] = o
	}

	batches := make([]model.SummaryBatch, 0, len(resp.Summaries))
	for _, s := range resp.Summaries {
		b := model.SummaryBatch{
			Summary:          s.Summary,
			ExtractedSummary: append([]string(nil), s.ExtractedSummary...),
			SelectedItems:    make([]model.SelectedItem, len(s.SelectedItems)),
			Queries:          make([][]string, len(s.SelectedItems)),
		}
		for i, item := range s.SelectedItems {
			obj, ok := lookup[item.ObjectID]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownObject, item.ObjectID)
			}
			pos, floor := *obj.Position, *obj.FloorID
			b.SelectedItems[i] = model.SelectedItem{
				ObjectID:       item.ObjectID,
				Owner:          item.Owner,
				ObjectCategory: obj.ObjectCategory,
				Position:       &pos,
				FloorID:        &floor,
				Description:    append([]string(nil), obj.Description...),
				Room:           obj.Room,
			}
			b.Queries[i] = Queries(obj.ObjectCategory, item.Owner, true, false)
		}
		batches = append(batches, b)
	}
	return batches, nil
}

// Enrich writes the preprocessed items back into resp, for response records.
func Enrich(batches []model.SummaryBatch) model.SummaryResponse {
	out := model.SummaryResponse{Summaries: make([]model.Summary, len(batches))}
	for i, b := range batches {
		out.Summaries[i] = model.Summary{
			SelectedItems:    b.SelectedItems,
			Summary:          b.Summary,
			ExtractedSummary: b.ExtractedSummary,
		}
	}
	return out
}

// BuildEpisodes creates one episode per selected item. Episode ids are left
// unset.
func BuildEpisodes(sceneID, sceneDatasetConfig string, batches []model.SummaryBatch) []model.Episode {
	var episodes []model.Episode
	for _, b := range batches {
		for j, query := range b.Queries {
			if j >= len(b.SelectedItems) {
				break
			}
			item := b.SelectedItems[j]
			ep := model.Episode{
				SceneID:            sceneID,
				SceneDatasetConfig: sceneDatasetConfig,
				ObjectCategory:     item.ObjectCategory,
				Target: model.Instance{
					ObjectID:    item.ObjectID,
					Description: append([]string(nil), item.Description...),
				},
				Owner:            item.Owner,
				Room:             item.Room,
				Summary:          b.Summary,
				ExtractedSummary: append([]string(nil), b.ExtractedSummary...),
				Query:            append([]string(nil), query...),
			}
			if item.Position != nil {
				ep.Target.Position = *item.Position
			}
			if item.FloorID != nil {
				floor := *item.FloorID
				ep.FloorID = &floor
			}
			episodes = append(episodes, ep)
		}
	}
	return episodes
}
