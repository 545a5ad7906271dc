package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/agenthands/personav/internal/core/geometry"
)

// ObjectID accepts both string and integer ids when decoding scene files.
type ObjectID string

func (id *ObjectID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ObjectID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("object id must be a string or number: %w", err)
	}
	*id = ObjectID(n.String())
	return nil
}

type AgentState struct {
	Position geometry.Vec3       `json:"position"`
	Rotation geometry.Quaternion `json:"rotation"`
}

// ViewPoint is a navigable pose from which a goal object should be visible.
type ViewPoint struct {
	AgentState AgentState `json:"agent_state"`
}

func NewViewPoint(pos geometry.Vec3, rot geometry.Quaternion) ViewPoint {
	return ViewPoint{AgentState: AgentState{Position: pos, Rotation: rot}}
}

func (v ViewPoint) Position() geometry.Vec3 { return v.AgentState.Position }

// SceneGoal is one goal object as stored in the persisted scene metadata.
type SceneGoal struct {
	ObjectID       ObjectID      `json:"object_id"`
	ObjectName     string        `json:"object_name,omitempty"`
	ObjectCategory string        `json:"object_category"`
	FloorID        *int          `json:"floor_id,omitempty"`
	Position       geometry.Vec3 `json:"position"`
	Room           string        `json:"room,omitempty"`
	ViewPoints     []ViewPoint   `json:"view_points"`
}

// SceneEpisode is a pre-existing navigation episode of the source benchmark.
// Each task is [category, goal type, object id].
type SceneEpisode struct {
	StartPosition geometry.Vec3       `json:"start_position"`
	StartRotation geometry.Quaternion `json:"start_rotation"`
	Tasks         [][]json.RawMessage `json:"tasks"`
}

// TaskObjectIDs returns the object id of each task that carries one.
func (e SceneEpisode) TaskObjectIDs() []ObjectID {
	ids := make([]ObjectID, 0, len(e.Tasks))
	for _, task := range e.Tasks {
		if len(task) < 3 {
			continue
		}
		var id ObjectID
		if err := json.Unmarshal(task[2], &id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// SceneData is the merged content of a scene across dataset splits.
type SceneData struct {
	Goals    map[string][]SceneGoal `json:"goals"`
	Episodes []SceneEpisode         `json:"episodes"`
}

// SceneObject is one annotated object as written by the annotators.
type SceneObject struct {
	ObjectID       string         `json:"object_id"`
	ObjectCategory string         `json:"object_category"`
	Room           string         `json:"room,omitempty"`
	FloorID        *int           `json:"floor_id"`
	Description    []string       `json:"description"`
	Position       *geometry.Vec3 `json:"position"`
}

// FloorKey renders the floor id as used in batch custom ids.
func (o SceneObject) FloorKey() string {
	if o.FloorID == nil {
		return "None"
	}
	return strconv.Itoa(*o.FloorID)
}
