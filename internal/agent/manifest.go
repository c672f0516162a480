package agent

import (
	"fmt"
	"strings"
)

// Manifest defines the structure of an agent's agent.yaml file.
type Manifest struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Protocol    int      `yaml:"protocol"`
	Entrypoint  string   `yaml:"entrypoint"`
	Description string   `yaml:"description,omitempty"`
	Commands    []string `yaml:"commands"`
}

// Agent is a discovered and validated agent executable.
type Agent struct {
	Name        string // Agent name from manifest
	Path        string // Absolute path to agent directory
	Entrypoint  string // Absolute path to entrypoint executable
	Protocol    int
	Version     string
	Description string
	Commands    []string
}

// SupportsCommand checks if the agent declares a given command.
func (a *Agent) SupportsCommand(cmd string) bool {
	for _, c := range a.Commands {
		if c == cmd {
			return true
		}
	}
	return false
}

var validCommands = map[string]bool{
	"summarize": true,
	"decide":    true,
	"chat":      true,
	"health":    true,
}

func validateManifest(m *Manifest) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if m.Protocol == 0 {
		return fmt.Errorf("protocol version is required")
	}
	if m.Entrypoint == "" {
		return fmt.Errorf("entrypoint is required")
	}
	if strings.Contains(m.Entrypoint, "..") {
		return fmt.Errorf("entrypoint contains path traversal: %s", m.Entrypoint)
	}
	if len(m.Commands) == 0 {
		return fmt.Errorf("at least one command must be declared")
	}
	for _, cmd := range m.Commands {
		if !validCommands[cmd] {
			return fmt.Errorf("invalid command %q (valid: summarize, decide, chat, health)", cmd)
		}
	}
	return nil
}
