package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agenthands/personav/internal/core/geometry"
)

// Tier is a difficulty level.
type Tier string

const (
	Easy   Tier = "easy"
	Medium Tier = "medium"
	Hard   Tier = "hard"
)

var ErrUnknownTier = errors.New("unknown difficulty tier")

func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case Easy, Medium, Hard:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

func (t Tier) String() string { return string(t) }

// StartCandidate is a start pose taken from a pre-existing scene episode.
type StartCandidate struct {
	Position geometry.Vec3
	Rotation geometry.Quaternion
}

// Lookups index scene metadata by goal object id.
type Lookups struct {
	ViewPoints map[ObjectID][]ViewPoint
	Starts     map[ObjectID][]StartCandidate
}
