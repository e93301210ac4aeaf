package sim

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes a page, its lazily coordinated elements, and a
// sequence of user interactions to replay against it.
type Scenario struct {
	// Name identifies the scenario, in logs.
	Name string `yaml:"name"`

	// Viewport is the initial window geometry.
	Viewport Size `yaml:"viewport"`

	// FetchLatencyMS is the simulated latency of every image fetch.
	FetchLatencyMS int `yaml:"fetch_latency_ms,omitempty"`

	// AutoplayThreshold is the percentage of a player that must be visible
	// for it to autoplay. Defaults to lazy.DefaultAutoplayThreshold.
	AutoplayThreshold float64 `yaml:"autoplay_threshold,omitempty"`

	// Elements are the coordinated resources, in document coordinates.
	Elements []Element `yaml:"elements"`

	// Steps are replayed in order, each settling before the next.
	Steps []Step `yaml:"steps"`
}

// Size is a viewport geometry.
type Size struct {
	Width       float64 `yaml:"width"`
	Height      float64 `yaml:"height"`
	FixedHeight float64 `yaml:"fixed_height,omitempty"`
}

// Box is an element's document-relative bounding box.
type Box struct {
	Left   float64 `yaml:"left"`
	Top    float64 `yaml:"top"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Element kinds.
const (
	KindImage  = "image"
	KindPlayer = "player"
	KindEffect = "effect"
)

// Element is a single coordinated resource.
type Element struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`
	Rect Box    `yaml:"rect"`

	// Src is the image source (images only). Defaults to the ID.
	Src string `yaml:"src,omitempty"`

	// FetchFails makes every fetch of the image fail (images only).
	FetchFails bool `yaml:"fetch_fails,omitempty"`

	// AutoplayBlocked makes every Play call fail (players only).
	AutoplayBlocked bool `yaml:"autoplay_blocked,omitempty"`
}

// Step is a single interaction. Exactly one field must be set.
type Step struct {
	Scroll *Offset     `yaml:"scroll,omitempty"`
	Resize *Size       `yaml:"resize,omitempty"`
	Rotate *Size       `yaml:"rotate,omitempty"`
	User   *UserAction `yaml:"user,omitempty"`
	Ended  string      `yaml:"ended,omitempty"`
	Remove string      `yaml:"remove,omitempty"`
	WaitMS int         `yaml:"wait_ms,omitempty"`
}

// Offset is a scroll position.
type Offset struct {
	X float64 `yaml:"x,omitempty"`
	Y float64 `yaml:"y,omitempty"`
}

// User actions, on players.
const (
	ActionPlay   = "play"
	ActionPause  = "pause"
	ActionMute   = "mute"
	ActionUnmute = "unmute"
)

// UserAction is an interaction with a player.
type UserAction struct {
	ID     string `yaml:"id"`
	Action string `yaml:"action"`
}

// Name returns the step type, as shown in traces.
func (x *Step) Name() string {
	switch {
	case x.Scroll != nil:
		return `scroll`
	case x.Resize != nil:
		return `resize`
	case x.Rotate != nil:
		return `rotate`
	case x.User != nil:
		return `user`
	case x.Ended != ``:
		return `ended`
	case x.Remove != ``:
		return `remove`
	case x.WaitMS != 0:
		return `wait`
	default:
		return `invalid`
	}
}

func (x *Step) count() (n int) {
	for _, set := range [...]bool{
		x.Scroll != nil,
		x.Resize != nil,
		x.Rotate != nil,
		x.User != nil,
		x.Ended != ``,
		x.Remove != ``,
		x.WaitMS != 0,
	} {
		if set {
			n++
		}
	}
	return n
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses a scenario, rejecting unknown fields and invalid
// scenarios.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Viewport.Width <= 0 || s.Viewport.Height <= 0 {
		return errors.New("viewport width and height must be positive")
	}
	if s.FetchLatencyMS < 0 {
		return errors.New("fetch_latency_ms must not be negative")
	}
	if s.AutoplayThreshold < 0 || s.AutoplayThreshold > 100 {
		return fmt.Errorf("autoplay_threshold %v out of range [0, 100]", s.AutoplayThreshold)
	}

	kinds := make(map[string]string, len(s.Elements))
	for i, e := range s.Elements {
		if e.ID == "" {
			return fmt.Errorf("element %d: id is required", i)
		}
		if _, ok := kinds[e.ID]; ok {
			return fmt.Errorf("element %q: duplicate id", e.ID)
		}
		switch e.Kind {
		case KindImage, KindPlayer, KindEffect:
		default:
			return fmt.Errorf("element %q: unknown kind %q", e.ID, e.Kind)
		}
		kinds[e.ID] = e.Kind
	}

	for i := range s.Steps {
		step := &s.Steps[i]
		if n := step.count(); n != 1 {
			return fmt.Errorf("step %d: expected exactly one action, got %d", i+1, n)
		}
		switch {
		case step.Resize != nil && (step.Resize.Width <= 0 || step.Resize.Height <= 0),
			step.Rotate != nil && (step.Rotate.Width <= 0 || step.Rotate.Height <= 0):
			return fmt.Errorf("step %d: width and height must be positive", i+1)
		case step.WaitMS < 0:
			return fmt.Errorf("step %d: wait_ms must not be negative", i+1)
		case step.User != nil:
			if kinds[step.User.ID] != KindPlayer {
				return fmt.Errorf("step %d: %q is not a player", i+1, step.User.ID)
			}
			switch step.User.Action {
			case ActionPlay, ActionPause, ActionMute, ActionUnmute:
			default:
				return fmt.Errorf("step %d: unknown user action %q", i+1, step.User.Action)
			}
		case step.Ended != "":
			if kinds[step.Ended] != KindPlayer {
				return fmt.Errorf("step %d: %q is not a player", i+1, step.Ended)
			}
		case step.Remove != "":
			if _, ok := kinds[step.Remove]; !ok {
				return fmt.Errorf("step %d: unknown element %q", i+1, step.Remove)
			}
		}
	}

	return nil
}
