package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agenthands/personav/internal/core/assembler"
	"github.com/agenthands/personav/internal/core/model"
	"github.com/agenthands/personav/internal/core/navmesh"
	"github.com/agenthands/personav/internal/core/sampler"
	"github.com/agenthands/personav/internal/dataset"
	"github.com/agenthands/personav/internal/llm"
)

// SceneOutput is the object-goal content file of one scene.
type SceneOutput struct {
	Name string
	File assembler.ObjectGoalFile
}

type EpisodeResult struct {
	RunID           string
	Tier            model.Tier
	Episodes        []model.Episode
	Scenes          []SceneOutput
	CategoryMapping map[string]int
	Records         []model.ResponseRecord
	Stats           assembler.Stats
	// FailedScenes lists scenes dropped because an episode had no start point.
	FailedScenes []string
	// Skipped counts responses that could not be parsed or matched.
	Skipped int
}

// BuildEpisodes turns batch outputs into finished episodes. Scenes are
// processed one at a time, each with its own simulator session.
func (p *Pipeline) BuildEpisodes(ctx context.Context, outputs []llm.BatchOutput, tier model.Tier) (EpisodeResult, error) {
	tc, err := p.tier(tier)
	if err != nil {
		return EpisodeResult{}, err
	}
	splitDir, scenes, err := p.scenes(tc)
	if err != nil {
		return EpisodeResult{}, err
	}

	res := EpisodeResult{RunID: p.UUIDGenerator(), Tier: tier}
	var all []model.Episode
	for _, scene := range scenes {
		if err := ctx.Err(); err != nil {
			return EpisodeResult{}, err
		}
		eps, records, skipped, err := p.buildScene(ctx, outputs, tier, tc.Split, splitDir, scene)
		res.Skipped += skipped
		var unsat *sampler.UnsatisfiableError
		if errors.As(err, &unsat) {
			p.Log.Error("dropping scene without start points", "scene", scene, "object", unsat.ObjectID, "error", err)
			res.FailedScenes = append(res.FailedScenes, scene)
			continue
		}
		if err != nil {
			return EpisodeResult{}, fmt.Errorf("failed to build episodes for %s: %w", scene, err)
		}
		res.Records = append(res.Records, records...)
		all = append(all, eps...)
		p.Log.Info("scene done", "scene", scene, "episodes", len(eps))
	}

	all = assembler.AssignIDs(all, tc.EpisodeCap, p.rng)
	res.Episodes = all

	byScene := make(map[string][]model.Episode)
	var order []string
	for _, ep := range all {
		name := sceneName(ep.SceneID)
		if _, ok := byScene[name]; !ok {
			order = append(order, name)
		}
		byScene[name] = append(byScene[name], ep)
	}
	for _, name := range order {
		res.Scenes = append(res.Scenes, SceneOutput{Name: name, File: assembler.ObjectGoalScene(byScene[name])})
	}
	res.CategoryMapping = assembler.CategoryMapping(all)
	res.Stats = assembler.Summarize(all)

	p.Log.Info("episodes built",
		"run_id", res.RunID,
		"tier", tier,
		"episodes", res.Stats.Episodes,
		"mean_geodesic", res.Stats.MeanGeodesic,
		"failed_scenes", len(res.FailedScenes),
		"skipped_responses", res.Skipped)
	return res, nil
}

func (p *Pipeline) buildScene(ctx context.Context, outputs []llm.BatchOutput, tier model.Tier, split, splitDir, scene string) ([]model.Episode, []model.ResponseRecord, int, error) {
	cfg := p.Config
	scenePath, err := navmesh.ScenePath(cfg.Simulator.ScenesDir, split, scene)
	if err != nil {
		return nil, nil, 0, err
	}
	files, err := dataset.AnnotationFiles(filepath.Join(splitDir, scene))
	if err != nil {
		return nil, nil, 0, err
	}

	var (
		episodes []model.Episode
		records  []model.ResponseRecord
		skipped  int
	)
	for _, file := range files {
		objs, err := dataset.ReadObjects(file)
		if err != nil {
			return nil, nil, 0, err
		}
		base := dataset.AnnotationBase(file)
		for _, group := range dataset.GroupByFloor(objs) {
			for _, out := range floorOutputs(outputs, llm.FloorPrefix(base, group.Floor)) {
				resp, err := assembler.ParseResponse(out.Content)
				if err != nil {
					p.Log.Warn("skipping unparsable response", "custom_id", out.CustomID, "error", err)
					skipped++
					continue
				}
				batches, err := assembler.Preprocess(resp, group.Objects)
				if errors.Is(err, assembler.ErrUnknownObject) {
					p.Log.Warn("skipping response with unknown object", "custom_id", out.CustomID, "error", err)
					skipped++
					continue
				}
				if err != nil {
					return nil, nil, skipped, fmt.Errorf("failed to preprocess %s: %w", out.CustomID, err)
				}
				records = append(records, model.ResponseRecord{
					SceneName: scene,
					FloorID:   group.Floor,
					CustomID:  out.CustomID,
					Response:  assembler.Enrich(batches),
				})
				episodes = append(episodes, assembler.BuildEpisodes(scenePath, cfg.Dataset.SceneDatasetConfig, batches)...)
			}
		}
	}
	if len(episodes) == 0 {
		p.Log.Warn("no episodes for scene", "scene", scene)
		return nil, records, skipped, nil
	}

	data, err := dataset.LoadMergedSceneData(cfg.Dataset.MetadataPath, scenePath, cfg.Dataset.MetadataSplits)
	if err != nil {
		return nil, nil, skipped, err
	}
	useVPs := cfg.Sampler.UseViewPoints
	lookups := dataset.BuildLookups(data, useVPs)

	settings := cfg.Simulator.Sensor.WithScene(scenePath)
	err = navmesh.WithSession(ctx, p.Opener, settings, func(pf navmesh.Pathfinder) error {
		s := sampler.New(pf, p.rng, p.Log)
		s.SkipUnsatisfiable = cfg.Sampler.SkipUnsatisfiable
		prepared, err := s.Prepare(ctx, episodes, lookups, tier, useVPs)
		if err != nil {
			return err
		}
		episodes = prepared
		return nil
	})
	if err != nil {
		return nil, nil, skipped, err
	}

	if episodes, err = assembler.MergeInstances(episodes); err != nil {
		return nil, nil, skipped, err
	}
	if err := assembler.SubstitutePlaceholders(episodes, p.names(), p.rng); err != nil {
		return nil, nil, skipped, err
	}
	return episodes, records, skipped, nil
}

// floorOutputs returns the outputs of one floor ordered by split index.
func floorOutputs(outputs []llm.BatchOutput, prefix string) []llm.BatchOutput {
	var out []llm.BatchOutput
	for _, o := range outputs {
		if llm.MatchesFloor(o.CustomID, prefix) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return llm.SplitIndex(out[i].CustomID) < llm.SplitIndex(out[j].CustomID)
	})
	return out
}

// sceneName maps ".../00800-abc/abc.basis.glb" to "abc".
func sceneName(sceneID string) string {
	return strings.TrimSuffix(dataset.SceneFileName(sceneID), ".json.gz")
}

// Write stores an episode result under dir/<tier>.
func Write(res EpisodeResult, dir string) error {
	root := filepath.Join(dir, string(res.Tier))
	for _, s := range res.Scenes {
		if err := dataset.WriteJSONGz(filepath.Join(root, "content", s.Name+".json.gz"), s.File); err != nil {
			return err
		}
	}
	if err := dataset.WriteJSON(filepath.Join(root, "category_mapping.json"), dataset.NewCategoryMappingFile(res.CategoryMapping)); err != nil {
		return err
	}
	if err := dataset.WriteJSON(filepath.Join(root, "responses.json"), res.Records); err != nil {
		return err
	}
	return dataset.WriteJSONGz(filepath.Join(root, string(res.Tier)+".json.gz"), map[string]any{"episodes": res.Episodes})
}
