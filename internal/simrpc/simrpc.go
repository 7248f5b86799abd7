// Package simrpc drives simulated physics time through the middleware's
// service-call mechanism. Process suspension is a separate concern: pausing
// physics does not stop the application process, and vice versa.
package simrpc

import (
	"fmt"
	"os/exec"
	"strings"
)

// Generation selects the service-call wire shape. It is resolved once at
// startup from the configured middleware version; callers never branch on
// it again.
type Generation uint8

const (
	GenerationModern Generation = iota
	GenerationLegacy
)

func (g Generation) String() string {
	if g == GenerationLegacy {
		return "legacy"
	}
	return "modern"
}

// legacyDistros are middleware versions still using the first-generation
// service-call tooling.
var legacyDistros = []string{"noetic", "melodic"}

// Detect resolves the generation from a middleware version string.
func Detect(middlewareVersion string) Generation {
	v := strings.ToLower(middlewareVersion)
	for _, d := range legacyDistros {
		if strings.Contains(v, d) {
			return GenerationLegacy
		}
	}
	return GenerationModern
}

// Runner executes a service-call command line. Production uses ExecRunner;
// tests substitute a recorder.
type Runner interface {
	Run(name string, args ...string) error
}

// ExecRunner runs service calls as blocking subprocesses.
type ExecRunner struct{}

func (ExecRunner) Run(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Client issues pause/unpause/reset calls against the running simulation.
type Client struct {
	generation Generation
	runner     Runner
}

// New creates a Client for the resolved generation.
func New(g Generation, r Runner) *Client {
	if r == nil {
		r = ExecRunner{}
	}
	return &Client{generation: g, runner: r}
}

// Pause freezes simulated physics time.
func (c *Client) Pause() error {
	return c.call("/gazebo/pause_physics", "/pause_physics")
}

// Unpause resumes simulated physics time.
func (c *Client) Unpause() error {
	return c.call("/gazebo/unpause_physics", "/unpause_physics")
}

// Reset restores the world to its initial configuration.
func (c *Client) Reset() error {
	return c.call("/gazebo/reset_world", "/reset_world")
}

func (c *Client) call(legacyService, modernService string) error {
	if c.generation == GenerationLegacy {
		if err := c.runner.Run("rosservice", "call", legacyService); err != nil {
			return fmt.Errorf("simulation call %s: %w", legacyService, err)
		}
		return nil
	}
	if err := c.runner.Run("ros2", "service", "call", modernService, "std_srvs/srv/Empty"); err != nil {
		return fmt.Errorf("simulation call %s: %w", modernService, err)
	}
	return nil
}
