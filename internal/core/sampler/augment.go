package sampler

import (
	"context"
	"fmt"

	"github.com/agenthands/personav/internal/core/geometry"
	"github.com/agenthands/personav/internal/core/model"
	"github.com/agenthands/personav/internal/core/navmesh"
)

const (
	// targetLift raises the ray target slightly above the object position.
	targetLift = 0.1
	// visibilityEpsilon is how much shorter than the target distance the
	// first hit may be while still counting as visible.
	visibilityEpsilon = 0.2
)

type AugmentOptions struct {
	Radius          float64 `toml:"radius"`
	MaxTries        int     `toml:"max_tries"`
	NearTries       int     `toml:"near_tries"`
	VisibilityCheck bool    `toml:"visibility_check"`
}

func DefaultAugmentOptions() AugmentOptions {
	return AugmentOptions{
		Radius:          1.5,
		MaxTries:        200,
		NearTries:       20,
		VisibilityCheck: true,
	}
}

// Augmenter samples extra viewpoints around a target.
type Augmenter struct {
	Pathfinder navmesh.Pathfinder
}

// Sample returns up to count viewpoints near target, each facing it. A
// candidate with a clear line of sight is preferred; when none is found
// within MaxTries the last navigable candidate is used.
func (a *Augmenter) Sample(ctx context.Context, target geometry.Vec3, count int, opts AugmentOptions) ([]model.ViewPoint, error) {
	center := target.Add(geometry.V(0, targetLift, 0))
	views := make([]model.ViewPoint, 0, count)

	for n := 0; n < count; n++ {
		var best geometry.Vec3
		found := false
		for i := 0; i < opts.MaxTries; i++ {
			p, ok, err := a.Pathfinder.RandomNavigablePointNear(ctx, target, opts.Radius, opts.NearTries)
			if err != nil {
				return nil, fmt.Errorf("failed to sample point near target: %w", err)
			}
			if !ok || !p.IsFinite() {
				continue
			}
			best, found = p, true
			if !opts.VisibilityCheck {
				break
			}
			visible, err := a.visible(ctx, p, center)
			if err != nil {
				return nil, err
			}
			if visible {
				break
			}
		}
		if found {
			views = append(views, model.NewViewPoint(best, geometry.RotationToPoint(best, target)))
		}
	}
	return views, nil
}

func (a *Augmenter) visible(ctx context.Context, from, center geometry.Vec3) (bool, error) {
	dir := center.Sub(from)
	dist := dir.Norm()
	hit, ok, err := a.Pathfinder.CastRay(ctx, from, dir)
	if err != nil {
		return false, fmt.Errorf("failed to cast visibility ray: %w", err)
	}
	return !ok || hit.Distance >= dist-visibilityEpsilon, nil
}
