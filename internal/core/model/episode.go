package model

import (
	"encoding/json"
	"fmt"

	"github.com/agenthands/personav/internal/core/geometry"
)

// Instance is one physical object an episode can be completed at.
type Instance struct {
	ObjectID    string
	Position    geometry.Vec3
	Description []string
	ViewPoints  []ViewPoint
}

// Episode is one navigation task. Target is the canonical goal instance;
// Extra holds further instances of the same category owned by the same
// person, ordered by increasing geodesic distance. An episode with no Extra
// is a single-instance episode.
type Episode struct {
	EpisodeID          *int
	SceneID            string
	SceneDatasetConfig string
	ObjectCategory     string
	Target             Instance
	Extra              []Instance
	Owner              string
	FloorID            *int
	Room               string
	Summary            string
	ExtractedSummary   []string
	Query              []string

	StartPosition     *geometry.Vec3
	StartRotation     *geometry.Quaternion
	GeodesicDistance  *float64
	EuclideanDistance *float64

	// ClosestViewPoint is working state for the start sampler and is never
	// serialized.
	ClosestViewPoint *geometry.Vec3
}

func (e *Episode) IsMultiInstance() bool { return len(e.Extra) > 0 }

// Instances returns the target followed by the extra instances.
func (e *Episode) Instances() []Instance {
	out := make([]Instance, 0, 1+len(e.Extra))
	out = append(out, e.Target)
	return append(out, e.Extra...)
}

// HasStart reports whether a start pose has been committed.
func (e *Episode) HasStart() bool { return e.StartPosition != nil }

// SetStart commits a start pose and its distances.
func (e *Episode) SetStart(pos geometry.Vec3, rot geometry.Quaternion, geodesic, euclidean float64) {
	e.StartPosition = &pos
	e.StartRotation = &rot
	e.GeodesicDistance = &geodesic
	e.EuclideanDistance = &euclidean
}

// Geodesic returns the sampled geodesic distance, if one was committed.
func (e *Episode) Geodesic() (float64, bool) {
	if e.GeodesicDistance == nil {
		return 0, false
	}
	return *e.GeodesicDistance, true
}

// WalkStrings visits every person-bearing string of the episode. The visitor
// returns the replacement value.
func (e *Episode) WalkStrings(visit func(s string) string) {
	e.Summary = visit(e.Summary)
	for i, s := range e.ExtractedSummary {
		e.ExtractedSummary[i] = visit(s)
	}
	for i, s := range e.Query {
		e.Query[i] = visit(s)
	}
	e.Owner = visit(e.Owner)
}

// Clone returns a deep copy of the slices the assembler rewrites.
func (e Episode) Clone() Episode {
	c := e
	c.ExtractedSummary = append([]string(nil), e.ExtractedSummary...)
	c.Query = append([]string(nil), e.Query...)
	c.Extra = append([]Instance(nil), e.Extra...)
	return c
}

type episodeJSON struct {
	EpisodeID          *int                 `json:"episode_id"`
	SceneID            string               `json:"scene_id"`
	SceneDatasetConfig string               `json:"scene_dataset_config"`
	ObjectCategory     string               `json:"object_category"`
	ObjectID           json.RawMessage      `json:"object_id"`
	ObjectPos          json.RawMessage      `json:"object_pos"`
	Description        json.RawMessage      `json:"description"`
	ViewPoints         json.RawMessage      `json:"view_points,omitempty"`
	Owner              string               `json:"owner"`
	FloorID            *int                 `json:"floor_id"`
	Room               string               `json:"room_id,omitempty"`
	Summary            string               `json:"summary"`
	ExtractedSummary   []string             `json:"extracted_summary"`
	Query              []string             `json:"query"`
	StartPosition      *geometry.Vec3       `json:"start_position,omitempty"`
	StartRotation      *geometry.Quaternion `json:"start_rotation,omitempty"`
	GeodesicDistance   *float64             `json:"geodesic_distance,omitempty"`
	EuclideanDistance  *float64             `json:"euclidean_distance,omitempty"`
}

// MarshalJSON writes scalars for single-instance episodes and parallel lists
// for multi-instance ones.
func (e Episode) MarshalJSON() ([]byte, error) {
	out := episodeJSON{
		EpisodeID:          e.EpisodeID,
		SceneID:            e.SceneID,
		SceneDatasetConfig: e.SceneDatasetConfig,
		ObjectCategory:     e.ObjectCategory,
		Owner:              e.Owner,
		FloorID:            e.FloorID,
		Room:               e.Room,
		Summary:            e.Summary,
		ExtractedSummary:   e.ExtractedSummary,
		Query:              e.Query,
		StartPosition:      e.StartPosition,
		StartRotation:      e.StartRotation,
		GeodesicDistance:   e.GeodesicDistance,
		EuclideanDistance:  e.EuclideanDistance,
	}

	var ids, pos, desc, vps any
	if e.IsMultiInstance() {
		insts := e.Instances()
		idList := make([]string, len(insts))
		posList := make([]geometry.Vec3, len(insts))
		descList := make([][]string, len(insts))
		vpList := make([][]ViewPoint, len(insts))
		for i, in := range insts {
			idList[i] = in.ObjectID
			posList[i] = in.Position
			descList[i] = nonNil(in.Description)
			vpList[i] = nonNilViewPoints(in.ViewPoints)
		}
		ids, pos, desc, vps = idList, posList, descList, vpList
	} else {
		ids = e.Target.ObjectID
		pos = e.Target.Position
		desc = nonNil(e.Target.Description)
		vps = nonNilViewPoints(e.Target.ViewPoints)
	}

	var err error
	if out.ObjectID, err = json.Marshal(ids); err != nil {
		return nil, err
	}
	if out.ObjectPos, err = json.Marshal(pos); err != nil {
		return nil, err
	}
	if out.Description, err = json.Marshal(desc); err != nil {
		return nil, err
	}
	if out.ViewPoints, err = json.Marshal(vps); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (e *Episode) UnmarshalJSON(b []byte) error {
	var in episodeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*e = Episode{
		EpisodeID:          in.EpisodeID,
		SceneID:            in.SceneID,
		SceneDatasetConfig: in.SceneDatasetConfig,
		ObjectCategory:     in.ObjectCategory,
		Owner:              in.Owner,
		FloorID:            in.FloorID,
		Room:               in.Room,
		Summary:            in.Summary,
		ExtractedSummary:   in.ExtractedSummary,
		Query:              in.Query,
		StartPosition:      in.StartPosition,
		StartRotation:      in.StartRotation,
		GeodesicDistance:   in.GeodesicDistance,
		EuclideanDistance:  in.EuclideanDistance,
	}

	var single string
	if err := json.Unmarshal(in.ObjectID, &single); err == nil {
		e.Target.ObjectID = single
		if err := json.Unmarshal(in.ObjectPos, &e.Target.Position); err != nil {
			return fmt.Errorf("failed to decode object_pos: %w", err)
		}
		if len(in.Description) > 0 {
			if err := json.Unmarshal(in.Description, &e.Target.Description); err != nil {
				return fmt.Errorf("failed to decode description: %w", err)
			}
		}
		if len(in.ViewPoints) > 0 {
			if err := json.Unmarshal(in.ViewPoints, &e.Target.ViewPoints); err != nil {
				return fmt.Errorf("failed to decode view_points: %w", err)
			}
		}
		return nil
	}

	var ids []string
	if err := json.Unmarshal(in.ObjectID, &ids); err != nil {
		return fmt.Errorf("object_id must be a string or a list: %w", err)
	}
	if len(ids) == 0 {
		return fmt.Errorf("object_id list is empty")
	}
	var positions []geometry.Vec3
	if err := json.Unmarshal(in.ObjectPos, &positions); err != nil {
		return fmt.Errorf("failed to decode object_pos list: %w", err)
	}
	if len(positions) != len(ids) {
		return fmt.Errorf("object_pos has %d entries for %d object ids", len(positions), len(ids))
	}
	var descs [][]string
	if len(in.Description) > 0 {
		if err := json.Unmarshal(in.Description, &descs); err != nil {
			return fmt.Errorf("failed to decode description list: %w", err)
		}
	}
	var vps [][]ViewPoint
	if len(in.ViewPoints) > 0 {
		if err := json.Unmarshal(in.ViewPoints, &vps); err != nil {
			return fmt.Errorf("failed to decode view_points list: %w", err)
		}
	}

	insts := make([]Instance, len(ids))
	for i, id := range ids {
		insts[i] = Instance{ObjectID: id, Position: positions[i]}
		if i < len(descs) {
			insts[i].Description = descs[i]
		}
		if i < len(vps) {
			insts[i].ViewPoints = vps[i]
		}
	}
	e.Target = insts[0]
	if len(insts) > 1 {
		e.Extra = insts[1:]
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilViewPoints(v []ViewPoint) []ViewPoint {
	if v == nil {
		return []ViewPoint{}
	}
	return v
}
