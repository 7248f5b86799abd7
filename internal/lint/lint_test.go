package lint

import (
	"strings"
	"testing"
)

func TestCheckDisabled(t *testing.T) {
	c := New(nil)
	findings, err := c.Check("anything at all")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if findings != "" {
		t.Fatalf("findings = %q, want empty", findings)
	}
}

func TestCheckCleanCode(t *testing.T) {
	// true ignores its argument and exits zero.
	c := New([]string{"true"})
	findings, err := c.Check("print('ok')\n")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if findings != "" {
		t.Fatalf("findings = %q, want empty", findings)
	}
}

func TestCheckFindings(t *testing.T) {
	// Non-zero exit with output reads as findings, not as engine failure.
	c := New([]string{"sh", "-c", "echo E0001: bad code; exit 4"})
	findings, err := c.Check("while True\n")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !strings.Contains(findings, "E0001") {
		t.Fatalf("findings = %q", findings)
	}
}

func TestCheckEngineFailure(t *testing.T) {
	t.Run("silent non-zero exit", func(t *testing.T) {
		c := New([]string{"false"})
		if _, err := c.Check("code"); err == nil {
			t.Fatal("expected engine error")
		}
	})

	t.Run("missing binary", func(t *testing.T) {
		c := New([]string{"definitely-not-a-checker-binary"})
		if _, err := c.Check("code"); err == nil {
			t.Fatal("expected exec error")
		}
	})
}

func TestCheckPassesFileArgument(t *testing.T) {
	// The submitted code must reach the checker through the file path
	// appended to argv.
	c := New([]string{"sh", "-c", `grep -q marker_string "$0" || exit 9`})
	if _, err := c.Check("# marker_string\n"); err != nil {
		t.Fatalf("Check: %v", err)
	}
}
