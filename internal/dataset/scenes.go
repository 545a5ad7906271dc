// Package dataset reads scene metadata and annotations from disk and writes
// the generated datasets back.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agenthands/personav/internal/core/model"
)

var ErrNoSceneData = errors.New("no scene data found")

// DefaultSplits are the metadata splits merged for every scene.
var DefaultSplits = []string{"val_seen", "val_seen_synonyms", "val_unseen"}

// SceneFileName maps a scene id such as "hm3d/val/00800-abc/abc.basis.glb"
// to its metadata file name, "abc.json.gz".
func SceneFileName(sceneID string) string {
	name := filepath.Base(sceneID)
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	return name + ".json.gz"
}

// LoadMergedSceneData merges goals and episodes of sceneID across splits.
// Goals of later splits replace earlier ones with the same key; episodes
// are concatenated.
func LoadMergedSceneData(baseDir, sceneID string, splits []string) (model.SceneData, error) {
	if len(splits) == 0 {
		splits = DefaultSplits
	}
	merged := model.SceneData{Goals: make(map[string][]model.SceneGoal)}
	found := false
	fname := SceneFileName(sceneID)

	for _, split := range splits {
		path := filepath.Join(baseDir, split, "content", fname)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		var data model.SceneData
		if err := ReadJSONGz(path, &data); err != nil {
			return model.SceneData{}, fmt.Errorf("failed to load scene data %s: %w", path, err)
		}
		found = true
		for k, v := range data.Goals {
			merged.Goals[k] = v
		}
		merged.Episodes = append(merged.Episodes, data.Episodes...)
	}

	if !found {
		return model.SceneData{}, fmt.Errorf("%w: %s in splits %v", ErrNoSceneData, sceneID, splits)
	}
	return merged, nil
}

// BuildLookups indexes viewpoints and pre-existing start poses by goal
// object id. Viewpoints are only indexed when useViewPoints is set.
func BuildLookups(data model.SceneData, useViewPoints bool) model.Lookups {
	lk := model.Lookups{
		ViewPoints: make(map[model.ObjectID][]model.ViewPoint),
		Starts:     make(map[model.ObjectID][]model.StartCandidate),
	}
	if useViewPoints {
		for _, goals := range data.Goals {
			for _, g := range goals {
				if g.ObjectID == "" {
					continue
				}
				lk.ViewPoints[g.ObjectID] = g.ViewPoints
			}
		}
	}
	for _, ep := range data.Episodes {
		for _, id := range ep.TaskObjectIDs() {
			lk.Starts[id] = append(lk.Starts[id], model.StartCandidate{
				Position: ep.StartPosition,
				Rotation: ep.StartRotation,
			})
		}
	}
	return lk
}
