package scene

import (
	"errors"
	gomath "math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Faultbox/midgard-kcc/internal/collision"
	"github.com/Faultbox/midgard-kcc/internal/world"
	"github.com/Faultbox/midgard-kcc/pkg/math"
)

const testScene = `
name: test
obstacles:
  - name: ground
    shape: plane
    normal: [0, 2, 0]
  - name: crate
    shape: box
    kind: dynamic
    half_extents: [0.5, 0.5, 0.5]
    position: [1, 0.5, 0]
  - name: ball
    shape: sphere
    radius: 2
    position: [-3, 0, 0]
spawns:
  - name: player
    position: [0, 5, 0]
    intent:
      move: [0, 1]
      yaw_deg: 90
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(testScene))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if s.Name != "test" || len(s.Obstacles) != 3 || len(s.Spawns) != 1 {
		t.Fatalf("Parse() = %+v", s)
	}

	ground, err := s.Obstacles[0].Collider()
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := ground.(collision.Plane); !ok || p.Normal != math.Up {
		t.Errorf("ground collider = %#v, want a normalized up plane", ground)
	}
	if kind, _ := s.Obstacles[1].ObstacleKind(); kind != world.Dynamic {
		t.Errorf("crate kind = %v, want dynamic", kind)
	}

	in := s.Spawns[0].Intent.Intent()
	if in.Move.Y() != 1 || gomath.Abs(in.Yaw-gomath.Pi/2) > 1e-12 {
		t.Errorf("Intent() = %+v", in)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{"unknown shape", "obstacles:\n  - name: x\n    shape: cone\n", ErrUnknownShape},
		{"unknown kind", "obstacles:\n  - name: x\n    shape: sphere\n    radius: 1\n    kind: floating\n", ErrUnknownKind},
		{"zero normal", "obstacles:\n  - name: x\n    shape: plane\n", nil},
		{"flat box", "obstacles:\n  - name: x\n    shape: box\n    half_extents: [1, 0, 1]\n", nil},
		{"negative spawn radius", "spawns:\n  - name: p\n    radius: -1\n", nil},
		{"not yaml", "obstacles: [", nil},
		{"static sway", "obstacles:\n  - name: x\n    shape: sphere\n    radius: 1\n    sway: [1, 0, 0]\n    period: 2\n", nil},
		{"sway without period", "obstacles:\n  - name: x\n    shape: sphere\n    radius: 1\n    kind: dynamic\n    sway: [1, 0, 0]\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestObstacleSpec_PositionAt(t *testing.T) {
	o := ObstacleSpec{Position: math.Vec3{1, 2, 3}, Sway: math.Vec3{0, 0, 2}, Period: 4}

	tests := []struct {
		at   float64
		want math.Vec3
	}{
		{0, math.Vec3{1, 2, 3}},
		{1, math.Vec3{1, 2, 5}},
		{2, math.Vec3{1, 2, 3}},
		{3, math.Vec3{1, 2, 1}},
		{4, math.Vec3{1, 2, 3}},
	}
	for _, tt := range tests {
		if got := o.PositionAt(tt.at); !math.ApproxEqual(got, tt.want, 1e-9) {
			t.Errorf("PositionAt(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}

	still := ObstacleSpec{Position: math.Vec3{1, 2, 3}}
	if still.Moving() || still.PositionAt(1) != still.Position {
		t.Errorf("obstacle without sway moved to %v", still.PositionAt(1))
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level.yaml")
	if err := os.WriteFile(path, []byte(testScene), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(s.Obstacles) != 3 {
		t.Errorf("Load() obstacles = %d, want 3", len(s.Obstacles))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want ErrNotExist", err)
	}
}

func TestBuildAndReplace(t *testing.T) {
	s, err := Parse([]byte(testScene))
	if err != nil {
		t.Fatal(err)
	}
	w := world.New()
	character := w.Add("character", world.Dynamic, collision.Sphere{Radius: 0.4}, math.Vec3{0, 5, 0})

	before := w.Snapshot().Version()
	ids, err := s.Build(w)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("Build() returned %d ids, want 3", len(ids))
	}
	if v := w.Snapshot().Version(); v != before+1 {
		t.Errorf("Build() published %d snapshots, want 1", v-before)
	}

	s.Obstacles = s.Obstacles[:1]
	newIDs, err := s.Replace(w, ids)
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	snap := w.Snapshot()
	if snap.Len() != 2 {
		t.Errorf("after Replace() world has %d obstacles, want ground and character", snap.Len())
	}
	if _, ok := snap.Obstacle(character); !ok {
		t.Error("Replace() removed the character body")
	}
	for _, id := range ids {
		if _, ok := snap.Obstacle(id); ok {
			t.Errorf("old obstacle %d still present", id)
		}
	}
	if len(newIDs) != 1 {
		t.Errorf("Replace() returned %d ids, want 1", len(newIDs))
	}

	s.Obstacles = append(s.Obstacles, ObstacleSpec{Name: "bad", Shape: "torus"})
	if _, err := s.Replace(w, newIDs); !errors.Is(err, ErrUnknownShape) {
		t.Errorf("Replace(invalid) error = %v, want ErrUnknownShape", err)
	}
	if w.Snapshot().Len() != 2 {
		t.Error("failed Replace() modified the world")
	}
}

func TestDemo(t *testing.T) {
	s, err := Demo()
	if err != nil {
		t.Fatalf("Demo() error = %v", err)
	}
	if len(s.Spawns) == 0 {
		t.Error("demo level has no spawns")
	}
	w := world.New()
	if _, err := s.Build(w); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// Every spawn starts in free space.
	snap := w.Snapshot()
	for _, sp := range s.Spawns {
		hit, ok := snap.CastShape(collision.Cast{Shape: collision.Sphere{Radius: 0.4}, Origin: sp.Position, Direction: math.Down})
		if ok && hit.Overlapping() {
			t.Errorf("spawn %q overlaps entity %d", sp.Name, hit.Entity)
		}
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "level.yaml")
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte(testScene), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(other, []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(testScene+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	want, _ := filepath.Abs(path)
	select {
	case got := <-w.Events:
		if got != want {
			t.Errorf("event path = %q, want %q", got, want)
		}
	case err := <-w.Errors:
		t.Fatalf("watcher error = %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for a rewritten scene file")
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	for range w.Events {
	}
}
