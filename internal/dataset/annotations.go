package dataset

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/agenthands/personav/internal/core/geometry"
	"github.com/agenthands/personav/internal/core/model"
)

// DefaultQuota caps how many objects of a category one annotation file may
// contribute.
var DefaultQuota = map[string]int{
	"chair":           3,
	"cabinet":         2,
	"picture":         2,
	"kitchen_cabinet": 2,
}

// MinChunk is the smallest trailing chunk kept on its own.
const MinChunk = 5

// ListScenes returns the scene directory names under splitDir, sorted.
// Hidden entries are skipped.
func ListScenes(splitDir string) ([]string, error) {
	entries, err := os.ReadDir(splitDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenes in %s: %w", splitDir, err)
	}
	var scenes []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		scenes = append(scenes, e.Name())
	}
	sort.Strings(scenes)
	return scenes, nil
}

// AnnotationFiles returns the object annotation files of a scene directory.
// Previously generated episode files are ignored.
func AnnotationFiles(sceneDir string) ([]string, error) {
	entries, err := os.ReadDir(sceneDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations in %s: %w", sceneDir, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" || strings.Contains(name, "episodes") {
			continue
		}
		files = append(files, filepath.Join(sceneDir, name))
	}
	sort.Strings(files)
	return files, nil
}

// AnnotationBase is the custom id base of an annotation file, its name
// without extensions.
func AnnotationBase(path string) string {
	name := filepath.Base(path)
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i]
	}
	return name
}

type rawObject struct {
	ObjectCategory string         `json:"object_category"`
	ObjectID       model.ObjectID `json:"object_id"`
	Room           string         `json:"room"`
	FloorID        *int           `json:"floor_id"`
	Description    []any          `json:"description"`
	Position       *geometry.Vec3 `json:"position"`
}

// ReadObjects loads an annotation file. Only non-blank string descriptions
// are kept.
func ReadObjects(path string) ([]model.SceneObject, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotations %s: %w", path, err)
	}
	var raw []rawObject
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode annotations %s: %w", path, err)
	}
	objs := make([]model.SceneObject, len(raw))
	for i, r := range raw {
		desc := []string{}
		for _, d := range r.Description {
			if s, ok := d.(string); ok && strings.TrimSpace(s) != "" {
				desc = append(desc, s)
			}
		}
		objs[i] = model.SceneObject{
			ObjectID:       string(r.ObjectID),
			ObjectCategory: r.ObjectCategory,
			Room:           r.Room,
			FloorID:        r.FloorID,
			Description:    desc,
			Position:       r.Position,
		}
	}
	return objs, nil
}

// Shuffle randomizes the order of objs in place.
func Shuffle(objs []model.SceneObject, rng *rand.Rand) {
	rng.Shuffle(len(objs), func(i, j int) { objs[i], objs[j] = objs[j], objs[i] })
}

// ApplyQuota keeps at most limits[c] objects of every limited category c,
// preserving order.
func ApplyQuota(objs []model.SceneObject, limits map[string]int) []model.SceneObject {
	seen := make(map[string]int)
	out := make([]model.SceneObject, 0, len(objs))
	for _, o := range objs {
		limit, capped := limits[o.ObjectCategory]
		if capped && seen[o.ObjectCategory] >= limit {
			continue
		}
		out = append(out, o)
		seen[o.ObjectCategory]++
	}
	return out
}

// FloorGroup is the objects of one floor.
type FloorGroup struct {
	Floor   string
	Objects []model.SceneObject
}

// GroupByFloor splits objs by floor, in order of first appearance.
func GroupByFloor(objs []model.SceneObject) []FloorGroup {
	var groups []FloorGroup
	index := make(map[string]int)
	for _, o := range objs {
		key := o.FloorKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, FloorGroup{Floor: key})
		}
		groups[i].Objects = append(groups[i].Objects, o)
	}
	return groups
}

// ChunkSize picks how many objects go into one prompt. Zero means no
// chunking. With the graph strategy medium and hard tiers use at most ten
// objects per chunk.
func ChunkSize(n int, tier model.Tier, graph bool) int {
	if graph && (tier == model.Medium || tier == model.Hard) {
		return min(n, 10)
	}
	switch {
	case n <= 10:
		return 0
	case n <= 20:
		return n / 2
	default:
		return n / 3
	}
}

// Chunk splits objs into chunks of size. A trailing chunk smaller than
// MinChunk is merged into the one before it.
func Chunk(objs []model.SceneObject, size int) [][]model.SceneObject {
	if size <= 0 || size >= len(objs) {
		if len(objs) == 0 {
			return nil
		}
		return [][]model.SceneObject{objs}
	}
	var chunks [][]model.SceneObject
	for i := 0; i < len(objs); i += size {
		chunks = append(chunks, objs[i:min(i+size, len(objs))])
	}
	if n := len(chunks); n > 1 && len(chunks[n-1]) < MinChunk {
		chunks[n-2] = append(slices.Clip(chunks[n-2]), chunks[n-1]...)
		chunks = chunks[:n-1]
	}
	return chunks
}
