package navmesh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/agenthands/personav/internal/core/geometry"
)

// BridgeOpener opens simulator sessions on a bridge process that hosts the
// simulator and exposes it over JSON/HTTP.
type BridgeOpener struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewBridgeOpener(baseURL string, timeout time.Duration) *BridgeOpener {
	return &BridgeOpener{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

func (o *BridgeOpener) Open(ctx context.Context, settings Settings) (Simulator, error) {
	c := &BridgeClient{baseURL: strings.TrimRight(o.BaseURL, "/"), http: o.HTTPClient}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/sessions", settings, &resp); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if resp.SessionID == "" {
		return nil, fmt.Errorf("bridge returned an empty session id")
	}
	c.sessionID = resp.SessionID
	return c, nil
}

// BridgeClient is one open session on the bridge.
type BridgeClient struct {
	baseURL   string
	sessionID string
	http      *http.Client
	closed    bool
}

func (c *BridgeClient) SessionID() string { return c.sessionID }

type pointResponse struct {
	Point *geometry.Vec3 `json:"point"`
}

type nearRequest struct {
	Center   geometry.Vec3 `json:"center"`
	Radius   float64       `json:"radius"`
	MaxTries int           `json:"max_tries"`
}

type geodesicRequest struct {
	Start geometry.Vec3 `json:"start"`
	End   geometry.Vec3 `json:"end"`
}

type geodesicResponse struct {
	Distance *float64 `json:"distance"`
}

type raycastRequest struct {
	Origin    geometry.Vec3 `json:"origin"`
	Direction geometry.Vec3 `json:"direction"`
}

type raycastResponse struct {
	Hit *Hit `json:"hit"`
}

func (c *BridgeClient) RandomNavigablePoint(ctx context.Context) (geometry.Vec3, error) {
	var resp pointResponse
	if err := c.session(ctx, "/random_point", struct{}{}, &resp); err != nil {
		return geometry.Vec3{}, err
	}
	if resp.Point == nil {
		return geometry.Vec3{}, fmt.Errorf("bridge returned no navigable point")
	}
	return *resp.Point, nil
}

func (c *BridgeClient) RandomNavigablePointNear(ctx context.Context, center geometry.Vec3, radius float64, maxTries int) (geometry.Vec3, bool, error) {
	var resp pointResponse
	req := nearRequest{Center: center, Radius: radius, MaxTries: maxTries}
	if err := c.session(ctx, "/random_point_near", req, &resp); err != nil {
		return geometry.Vec3{}, false, err
	}
	if resp.Point == nil {
		return geometry.Vec3{}, false, nil
	}
	return *resp.Point, true, nil
}

// GeodesicDistance maps a null distance from the bridge to +Inf.
func (c *BridgeClient) GeodesicDistance(ctx context.Context, start, end geometry.Vec3) (float64, error) {
	var resp geodesicResponse
	if err := c.session(ctx, "/geodesic", geodesicRequest{Start: start, End: end}, &resp); err != nil {
		return 0, err
	}
	if resp.Distance == nil {
		return math.Inf(1), nil
	}
	return *resp.Distance, nil
}

func (c *BridgeClient) CastRay(ctx context.Context, origin, direction geometry.Vec3) (Hit, bool, error) {
	var resp raycastResponse
	if err := c.session(ctx, "/raycast", raycastRequest{Origin: origin, Direction: direction}, &resp); err != nil {
		return Hit{}, false, err
	}
	if resp.Hit == nil {
		return Hit{}, false, nil
	}
	return *resp.Hit, true, nil
}

func (c *BridgeClient) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.do(context.Background(), http.MethodDelete, "/sessions/"+c.sessionID, nil, nil)
}

func (c *BridgeClient) session(ctx context.Context, route string, in, out any) error {
	if c.closed {
		return ErrClosed
	}
	return c.do(ctx, http.MethodPost, "/sessions/"+c.sessionID+route, in, out)
}

func (c *BridgeClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call bridge %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("bridge %s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode bridge response: %w", err)
	}
	return nil
}
