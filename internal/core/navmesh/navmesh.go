// Package navmesh is the boundary to the 3D simulator. Everything the samplers
// need from a scene goes through Pathfinder; how a scene is opened and closed
// goes through Opener.
package navmesh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agenthands/personav/internal/core/geometry"
)

var ErrClosed = errors.New("simulator is closed")

// Hit is the first intersection of a ray with scene geometry. Distance is in
// scene units from the ray origin.
type Hit struct {
	Point    geometry.Vec3 `json:"point"`
	Distance float64       `json:"distance"`
}

// Pathfinder answers navmesh queries. An unreachable pair of points is not an
// error: GeodesicDistance returns +Inf for it. Errors are reserved for a
// simulator that cannot answer at all.
type Pathfinder interface {
	RandomNavigablePoint(ctx context.Context) (geometry.Vec3, error)
	// RandomNavigablePointNear returns false when no usable point was found
	// within radius of center after maxTries attempts.
	RandomNavigablePointNear(ctx context.Context, center geometry.Vec3, radius float64, maxTries int) (geometry.Vec3, bool, error)
	GeodesicDistance(ctx context.Context, start, end geometry.Vec3) (float64, error)
	// CastRay returns false when the ray hits nothing.
	CastRay(ctx context.Context, origin, direction geometry.Vec3) (Hit, bool, error)
}

type Simulator interface {
	Pathfinder
	Close() error
}

type Opener interface {
	Open(ctx context.Context, settings Settings) (Simulator, error)
}

// Settings configures one simulator instance. It is passed by value; use
// WithScene to derive the settings for another scene.
type Settings struct {
	Scene           string  `json:"scene" toml:"scene"`
	DefaultAgent    int     `json:"default_agent" toml:"default_agent"`
	SensorHeight    float64 `json:"sensor_height" toml:"sensor_height"`
	Width           int     `json:"width" toml:"width"`
	Height          int     `json:"height" toml:"height"`
	HFOV            float64 `json:"hfov" toml:"hfov"`
	Equirectangular bool    `json:"equirectangular" toml:"equirectangular"`
}

func DefaultSettings() Settings {
	return Settings{
		DefaultAgent: 0,
		SensorHeight: 1.0,
		Width:        256,
		Height:       256,
		HFOV:         90,
	}
}

func (s Settings) WithScene(scene string) Settings {
	s.Scene = scene
	return s
}

// WithSession opens a simulator for settings, runs fn against it and closes
// it before returning, whatever fn returned.
func WithSession(ctx context.Context, opener Opener, settings Settings, fn func(Pathfinder) error) (err error) {
	sim, err := opener.Open(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to open simulator for %s: %w", settings.Scene, err)
	}
	defer func() {
		if cerr := sim.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close simulator for %s: %w", settings.Scene, cerr))
		}
	}()
	return fn(sim)
}

// ScenePath resolves a scene name to its mesh path under scenesDir. Scene
// folders are named "<number>-<name>" and live in a "val" or "train" folder.
func ScenePath(scenesDir, split, name string) (string, error) {
	group := "train"
	if strings.Contains(split, "val") {
		group = "val"
	}
	dir := filepath.Join(scenesDir, group)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to list scenes in %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), "-"+name) {
			continue
		}
		number := strings.SplitN(e.Name(), "-", 2)[0]
		return filepath.Join(dir, number+"-"+name, name+".basis.glb"), nil
	}
	return "", fmt.Errorf("scene %q not found in %s", name, dir)
}
