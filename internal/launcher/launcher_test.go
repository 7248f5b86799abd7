package launcher

import (
	"context"
	"testing"

	"robolab/internal/proc"
	"robolab/internal/worldcfg"
)

func TestNeedsTelemetry(t *testing.T) {
	cases := []struct {
		kind string
		want bool
	}{
		{"console", false},
		{"gzclient", false},
		{"gazebo_rae", true},
		{"unknown", false},
	}
	for _, tc := range cases {
		if got := NeedsTelemetry(tc.kind); got != tc.want {
			t.Errorf("NeedsTelemetry(%q) = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestVisualizationRejectsUnknownKind(t *testing.T) {
	v := NewVisualization(proc.New())
	if _, err := v.Launch("hologram"); err == nil {
		t.Fatal("unknown kind accepted")
	}
}

func TestWorldRejectsUnknownSimulator(t *testing.T) {
	w := NewWorld(proc.New(), nil)
	_, err := w.Launch(context.Background(), worldcfg.Config{Name: "arena", World: "quake"})
	if err == nil {
		t.Fatal("unknown simulator accepted")
	}
}

func TestWorldRequiresDockerForImages(t *testing.T) {
	w := NewWorld(proc.New(), nil)
	cfg := worldcfg.Config{Name: "arena", World: "gazebo", Image: "example/sim:latest"}
	if _, err := w.Launch(context.Background(), cfg); err == nil {
		t.Fatal("container launch accepted without docker client")
	}
}

func TestWorldSpawnsHostProcess(t *testing.T) {
	w := NewWorld(proc.New(), nil)

	// "sleep" stands in for a simulator binary via a temporary table entry.
	worldCommands["fake_sim"] = []string{"sleep", "60"}
	defer delete(worldCommands, "fake_sim")

	run, err := w.Launch(context.Background(), worldcfg.Config{Name: "arena", World: "fake_sim"})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if err := run.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
}
