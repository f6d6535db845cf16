package harness

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Event kinds accepted in scenarios.
const (
	EventStart   = "start"
	EventMempool = "mempool"
	EventBlock   = "block"
)

// Scenario is one recorded engine session.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario covers.
	Description string `yaml:"description"`

	// Config is the config document text (JSON or module.exports).
	Config string `yaml:"config"`

	// Mode is "pipe" (default) or "file".
	Mode string `yaml:"mode,omitempty"`

	// Concurrent delivers mempool and block events from parallel goroutines
	// after the start event. Line order is then unspecified.
	Concurrent bool `yaml:"concurrent,omitempty"`

	// Clock fixes the timestamps. Defaults to DefaultClockStart, step 1.
	Clock *ClockSpec `yaml:"clock,omitempty"`

	// Events are delivered in order.
	Events []Event `yaml:"events"`
}

// ClockSpec configures the stepping clock.
type ClockSpec struct {
	Start int64 `yaml:"start"`
	Step  int64 `yaml:"step"`
}

// Event is one engine callback.
type Event struct {
	// Type is start, mempool or block.
	Type string `yaml:"type"`

	// Data is the event JSON: the start payload, {"tx": {...}} for
	// mempool, {"tx": [...]} for block.
	Data string `yaml:"data,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

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
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Config == "" {
		return errors.New("config is required")
	}
	switch s.Mode {
	case "", "pipe", "file":
	default:
		return fmt.Errorf("mode %q: must be pipe or file", s.Mode)
	}
	for i, ev := range s.Events {
		switch ev.Type {
		case EventStart, EventMempool, EventBlock:
		default:
			return fmt.Errorf("events[%d]: unknown type %q", i, ev.Type)
		}
		if ev.Data != "" && !json.Valid([]byte(ev.Data)) {
			return fmt.Errorf("events[%d]: data is not valid JSON", i)
		}
	}
	return nil
}
