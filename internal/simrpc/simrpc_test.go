package simrpc

import (
	"errors"
	"slices"
	"testing"
)

type recordingRunner struct {
	calls [][]string
	err   error
}

func (r *recordingRunner) Run(name string, args ...string) error {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.err
}

func TestDetect(t *testing.T) {
	cases := []struct {
		version string
		want    Generation
	}{
		{"noetic", GenerationLegacy},
		{"ros1-noetic", GenerationLegacy},
		{"melodic", GenerationLegacy},
		{"humble", GenerationModern},
		{"jazzy", GenerationModern},
		{"", GenerationModern},
		{"NOETIC", GenerationLegacy},
	}
	for _, tc := range cases {
		if got := Detect(tc.version); got != tc.want {
			t.Errorf("Detect(%q) = %s, want %s", tc.version, got, tc.want)
		}
	}
}

func TestClientLegacyCalls(t *testing.T) {
	r := &recordingRunner{}
	c := New(GenerationLegacy, r)

	if err := c.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := c.Unpause(); err != nil {
		t.Fatalf("Unpause: %v", err)
	}
	if err := c.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	want := [][]string{
		{"rosservice", "call", "/gazebo/pause_physics"},
		{"rosservice", "call", "/gazebo/unpause_physics"},
		{"rosservice", "call", "/gazebo/reset_world"},
	}
	if len(r.calls) != len(want) {
		t.Fatalf("calls = %v", r.calls)
	}
	for i := range want {
		if !slices.Equal(r.calls[i], want[i]) {
			t.Errorf("call %d = %v, want %v", i, r.calls[i], want[i])
		}
	}
}

func TestClientModernCalls(t *testing.T) {
	r := &recordingRunner{}
	c := New(GenerationModern, r)

	if err := c.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := c.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	want := [][]string{
		{"ros2", "service", "call", "/pause_physics", "std_srvs/srv/Empty"},
		{"ros2", "service", "call", "/reset_world", "std_srvs/srv/Empty"},
	}
	for i := range want {
		if !slices.Equal(r.calls[i], want[i]) {
			t.Errorf("call %d = %v, want %v", i, r.calls[i], want[i])
		}
	}
}

func TestClientWrapsRunnerError(t *testing.T) {
	cause := errors.New("service unavailable")
	c := New(GenerationModern, &recordingRunner{err: cause})

	err := c.Unpause()
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want wrapped %v", err, cause)
	}
}
