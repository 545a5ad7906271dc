package assembler

import (
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/agenthands/personav/internal/core/geometry"
	"github.com/agenthands/personav/internal/core/model"
)

// GoalObject is one entry of goals_by_category in the object-goal dataset.
type GoalObject struct {
	Position       geometry.Vec3     `json:"position"`
	Radius         *float64          `json:"radius"`
	ObjectID       int               `json:"object_id"`
	ObjectName     string            `json:"object_name"`
	ObjectNameID   *int              `json:"object_name_id"`
	ObjectCategory string            `json:"object_category"`
	FloorID        *int              `json:"floor_id"`
	RoomID         *string           `json:"room_id"`
	RoomName       *string           `json:"room_name"`
	ViewPoints     []model.ViewPoint `json:"view_points"`
}

type EpisodeInfo struct {
	GeodesicDistance    float64 `json:"geodesic_distance"`
	EuclideanDistance   float64 `json:"euclidean_distance"`
	ClosestGoalObjectID int     `json:"closest_goal_object_id"`
}

// GoalEpisode is an episode in the object-goal dataset layout.
type GoalEpisode struct {
	EpisodeID                string               `json:"episode_id"`
	SceneID                  string               `json:"scene_id"`
	SceneDatasetConfig       string               `json:"scene_dataset_config"`
	ObjectCategory           string               `json:"object_category"`
	ObjectID                 any                  `json:"object_id"`
	Description              any                  `json:"description"`
	Owner                    string               `json:"owner"`
	FloorID                  *int                 `json:"floor_id"`
	RoomID                   *string              `json:"room_id"`
	Summary                  string               `json:"summary"`
	ExtractedSummary         []string             `json:"extracted_summary"`
	Query                    []string             `json:"query"`
	StartPosition            *geometry.Vec3       `json:"start_position"`
	StartRotation            *geometry.Quaternion `json:"start_rotation"`
	AdditionalObjConfigPaths []string             `json:"additional_obj_config_paths"`
	Goals                    []GoalObject         `json:"goals"`
	StartRoom                *string              `json:"start_room"`
	ShortestPaths            any                  `json:"shortest_paths"`
	Info                     EpisodeInfo          `json:"info"`
}

// ObjectGoalFile is the per-scene object-goal dataset document.
type ObjectGoalFile struct {
	GoalsByCategory map[string][]GoalObject `json:"goals_by_category"`
	Episodes        []GoalEpisode           `json:"episodes"`
}

// ObjectIDInt parses the numeric suffix of ids such as "chair_12". It
// returns -1 when there is none.
func ObjectIDInt(id string) int {
	suffix := id
	if i := strings.LastIndex(id, "_"); i >= 0 {
		suffix = id[i+1:]
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return -1
	}
	return n
}

// ObjectGoalScene lays eps out as an object-goal dataset. Goals are keyed by
// "<scene file>_<category>" and deduplicated by integer object id.
func ObjectGoalScene(eps []model.Episode) ObjectGoalFile {
	out := ObjectGoalFile{
		GoalsByCategory: make(map[string][]GoalObject),
		Episodes:        make([]GoalEpisode, 0, len(eps)),
	}

	for _, ep := range eps {
		key := path.Base(ep.SceneID) + "_" + ep.ObjectCategory
		room := optional(ep.Room)

		existing := make(map[int]struct{}, len(out.GoalsByCategory[key]))
		for _, g := range out.GoalsByCategory[key] {
			existing[g.ObjectID] = struct{}{}
		}
		for _, in := range ep.Instances() {
			id := ObjectIDInt(in.ObjectID)
			if _, dup := existing[id]; dup {
				continue
			}
			existing[id] = struct{}{}
			out.GoalsByCategory[key] = append(out.GoalsByCategory[key], GoalObject{
				Position:       in.Position,
				ObjectID:       id,
				ObjectName:     in.ObjectID,
				ObjectCategory: ep.ObjectCategory,
				FloorID:        ep.FloorID,
				RoomID:         room,
				ViewPoints:     nonNilViewPoints(in.ViewPoints),
			})
		}

		out.Episodes = append(out.Episodes, goalEpisode(ep, room))
	}
	return out
}

func goalEpisode(ep model.Episode, room *string) GoalEpisode {
	ge := GoalEpisode{
		SceneID:                  ep.SceneID,
		SceneDatasetConfig:       ep.SceneDatasetConfig,
		ObjectCategory:           ep.ObjectCategory,
		Owner:                    ep.Owner,
		FloorID:                  ep.FloorID,
		RoomID:                   room,
		Summary:                  ep.Summary,
		ExtractedSummary:         ep.ExtractedSummary,
		Query:                    ep.Query,
		StartPosition:            ep.StartPosition,
		StartRotation:            ep.StartRotation,
		AdditionalObjConfigPaths: []string{},
		Goals:                    []GoalObject{},
		Info: EpisodeInfo{
			GeodesicDistance:    -1,
			EuclideanDistance:   -1,
			ClosestGoalObjectID: ObjectIDInt(ep.Target.ObjectID),
		},
	}
	if ep.EpisodeID != nil {
		ge.EpisodeID = strconv.Itoa(*ep.EpisodeID)
	}
	if ep.GeodesicDistance != nil {
		ge.Info.GeodesicDistance = *ep.GeodesicDistance
	}
	if ep.EuclideanDistance != nil {
		ge.Info.EuclideanDistance = *ep.EuclideanDistance
	}

	if ep.IsMultiInstance() {
		insts := ep.Instances()
		ids := make([]string, len(insts))
		descs := make([][]string, len(insts))
		for i, in := range insts {
			ids[i] = in.ObjectID
			descs[i] = in.Description
		}
		ge.ObjectID, ge.Description = ids, descs
	} else {
		ge.ObjectID, ge.Description = ep.Target.ObjectID, ep.Target.Description
	}
	return ge
}

// CategoryMapping assigns contiguous indices to the sorted categories of eps.
func CategoryMapping(eps []model.Episode) map[string]int {
	seen := make(map[string]struct{})
	for _, ep := range eps {
		seen[ep.ObjectCategory] = struct{}{}
	}
	cats := make([]string, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	out := make(map[string]int, len(cats))
	for i, c := range cats {
		out[c] = i
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNilViewPoints(v []model.ViewPoint) []model.ViewPoint {
	if v == nil {
		return []model.ViewPoint{}
	}
	return v
}
