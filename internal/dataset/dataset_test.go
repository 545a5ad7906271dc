package dataset

import (
	"encoding/json"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/personav/internal/core/geometry"
	"github.com/agenthands/personav/internal/core/model"
)

func writeScene(t *testing.T, base, split, name string, data any) {
	t.Helper()
	require.NoError(t, WriteJSONGz(filepath.Join(base, split, "content", name+".json.gz"), data))
}

func TestSceneFileName(t *testing.T) {
	assert.Equal(t, "abc.json.gz", SceneFileName("hm3d/val/00800-abc/abc.basis.glb"))
	assert.Equal(t, "abc.json.gz", SceneFileName("abc"))
}

func TestLoadMergedSceneData(t *testing.T) {
	base := t.TempDir()
	vp := []any{map[string]any{"agent_state": map[string]any{"position": []float64{1, 0, 1}, "rotation": []float64{0, 0, 0, 1}}}}
	writeScene(t, base, "val_seen", "abc", map[string]any{
		"goals": map[string]any{
			"abc_chair": []any{map[string]any{"object_id": "chair_1", "object_category": "chair", "position": []float64{1, 0, 2}, "view_points": vp}},
			"abc_bed":   []any{map[string]any{"object_id": "bed_2", "object_category": "bed", "position": []float64{3, 0, 2}, "view_points": []any{}}},
		},
		"episodes": []any{map[string]any{
			"start_position": []float64{0, 0, 0},
			"start_rotation": []float64{0, 0, 0, 1},
			"tasks":          []any{[]any{"chair", "object", "chair_1"}, []any{"bed", "object"}},
		}},
	})
	writeScene(t, base, "val_unseen", "abc", map[string]any{
		"goals": map[string]any{
			"abc_bed": []any{map[string]any{"object_id": 7, "object_category": "bed", "position": []float64{5, 0, 5}}},
		},
		"episodes": []any{map[string]any{
			"start_position": []float64{2, 0, 2},
			"start_rotation": []float64{0, 0, 0, 1},
			"tasks":          []any{[]any{"chair", "object", "chair_1"}},
		}},
	})

	data, err := LoadMergedSceneData(base, "scenes/00800-abc/abc.basis.glb", nil)
	require.NoError(t, err)
	assert.Len(t, data.Goals, 2)
	require.Len(t, data.Goals["abc_bed"], 1)
	assert.Equal(t, model.ObjectID("7"), data.Goals["abc_bed"][0].ObjectID, "later splits replace goals")
	assert.Len(t, data.Episodes, 2)

	t.Run("lookups", func(t *testing.T) {
		lk := BuildLookups(data, true)
		assert.Len(t, lk.ViewPoints["chair_1"], 1)
		assert.Equal(t, geometry.V(1, 0, 1), lk.ViewPoints["chair_1"][0].Position())
		require.Len(t, lk.Starts["chair_1"], 2)
		assert.Equal(t, geometry.V(2, 0, 2), lk.Starts["chair_1"][1].Position)

		noVP := BuildLookups(data, false)
		assert.Empty(t, noVP.ViewPoints)
		assert.Len(t, noVP.Starts["chair_1"], 2)
	})

	t.Run("missing scene", func(t *testing.T) {
		_, err := LoadMergedSceneData(base, "nope", nil)
		assert.ErrorIs(t, err, ErrNoSceneData)
	})
}

func TestAnnotations(t *testing.T) {
	dir := t.TempDir()
	scene := filepath.Join(dir, "00800-abc")
	require.NoError(t, os.MkdirAll(scene, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".cache"), 0o755))

	objs := []map[string]any{
		{"object_category": "chair", "object_id": "chair_1", "room": "kitchen", "floor_id": 0, "description": []any{"red", "", 3}, "position": []float64{1, 0, 1}, "to_discuss": true},
		{"object_category": "bed", "object_id": 4, "room": "bedroom", "floor_id": nil, "description": []any{"big"}, "position": []float64{2, 0, 2}},
	}
	b, err := json.Marshal(objs)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(scene, "abc.json"), b, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(scene, "abc_episodes.json"), []byte("[]"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(scene, "notes.txt"), []byte("x"), 0o644))

	scenes, err := ListScenes(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"00800-abc"}, scenes)

	files, err := AnnotationFiles(scene)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(scene, "abc.json")}, files)
	assert.Equal(t, "abc", AnnotationBase(files[0]))

	got, err := ReadObjects(files[0])
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"red"}, got[0].Description)
	assert.Equal(t, "4", got[1].ObjectID)
	assert.Equal(t, "None", got[1].FloorKey())
	assert.Equal(t, "0", got[0].FloorKey())
}

func objsOf(cats ...string) []model.SceneObject {
	out := make([]model.SceneObject, len(cats))
	for i, c := range cats {
		out[i] = model.SceneObject{ObjectID: c, ObjectCategory: c}
	}
	return out
}

func TestApplyQuota(t *testing.T) {
	in := objsOf("chair", "chair", "bed", "chair", "chair", "picture", "picture", "picture")
	out := ApplyQuota(in, DefaultQuota)
	var cats []string
	for _, o := range out {
		cats = append(cats, o.ObjectCategory)
	}
	assert.Equal(t, []string{"chair", "chair", "bed", "chair", "picture", "picture"}, cats)
}

func TestShuffle(t *testing.T) {
	in := objsOf("a", "b", "c", "d", "e", "f")
	Shuffle(in, rand.New(rand.NewPCG(1, 1)))
	assert.ElementsMatch(t, objsOf("a", "b", "c", "d", "e", "f"), in)
}

func TestGroupByFloor(t *testing.T) {
	zero, one := 0, 1
	objs := []model.SceneObject{
		{ObjectID: "a", FloorID: &one},
		{ObjectID: "b", FloorID: &zero},
		{ObjectID: "c", FloorID: &one},
		{ObjectID: "d"},
	}
	groups := GroupByFloor(objs)
	require.Len(t, groups, 3)
	assert.Equal(t, "1", groups[0].Floor)
	assert.Len(t, groups[0].Objects, 2)
	assert.Equal(t, "0", groups[1].Floor)
	assert.Equal(t, "None", groups[2].Floor)
}

func TestChunkSize(t *testing.T) {
	tests := []struct {
		n     int
		tier  model.Tier
		graph bool
		want  int
	}{
		{25, model.Hard, true, 10},
		{7, model.Medium, true, 7},
		{8, model.Easy, true, 0},
		{15, model.Easy, true, 7},
		{30, model.Hard, false, 10},
		{9, model.Hard, false, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ChunkSize(tt.n, tt.tier, tt.graph), "n=%d tier=%s graph=%v", tt.n, tt.tier, tt.graph)
	}
}

func TestChunk(t *testing.T) {
	objs := objsOf("a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m")

	chunks := Chunk(objs, 10)
	require.Len(t, chunks, 1, "a tail of three is merged")
	assert.Len(t, chunks[0], 13)
	assert.Equal(t, "d", objs[3].ObjectID, "input is untouched")

	chunks = Chunk(objs, 4)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[2], 5)

	assert.Len(t, Chunk(objs, 0), 1)
	assert.Nil(t, Chunk(nil, 0))
}

func TestCategoryMappingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "mapping.json")
	require.NoError(t, WriteJSON(path, NewCategoryMappingFile(map[string]int{"bed": 0})))

	var m map[string]map[string]int
	require.NoError(t, ReadJSON(path, &m))
	assert.Equal(t, 0, m["category_to_task_category_id"]["bed"])
	assert.Equal(t, 0, m["category_to_scene_annotation_category_id"]["bed"])
}

func TestResponseRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responses.json")
	recs := []model.ResponseRecord{{SceneName: "abc", FloorID: "0", CustomID: "abc_floor_0_split_0"}}
	require.NoError(t, WriteJSON(path, recs))
	got, err := ReadResponseRecords(path)
	require.NoError(t, err)
	assert.Equal(t, "abc_floor_0_split_0", got[0].CustomID)
}
