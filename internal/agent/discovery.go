package agent

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const manifestFilename = "agent.yaml"

// Registry holds discovered agents indexed by name.
type Registry struct {
	agents map[string]*Agent
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*Agent)}
}

// Get retrieves an agent by name.
func (r *Registry) Get(name string) (*Agent, bool) {
	a, ok := r.agents[name]
	return a, ok
}

// All returns all registered agents.
func (r *Registry) All() map[string]*Agent {
	return r.agents
}

// Add registers an agent in the registry.
func (r *Registry) Add(agent *Agent) error {
	if _, exists := r.agents[agent.Name]; exists {
		return fmt.Errorf("agent %q already registered", agent.Name)
	}
	r.agents[agent.Name] = agent
	return nil
}

// Discover scans agentsDir for directories with an agent.yaml manifest and
// validates them. Invalid agents are logged and skipped, not fatal.
func Discover(agentsDir string, logger func(level, msg string, args ...any)) (*Registry, error) {
	if logger == nil {
		logger = func(level, msg string, args ...any) {}
	}

	absRoot, err := filepath.Abs(agentsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve agents dir %q: %w", agentsDir, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("agents dir does not exist: %s", absRoot)
		}
		return nil, fmt.Errorf("failed to stat agents dir %s: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("agents dir is not a directory: %s", absRoot)
	}

	registry := NewRegistry()
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || d.Name() != manifestFilename {
			return nil
		}

		agentPath := filepath.Dir(path)
		agent, err := loadAgent(agentPath, absRoot)
		if err != nil {
			logger("warn", "failed to load agent", "path", agentPath, "error", err.Error())
			return nil
		}

		if err := registry.Add(agent); err != nil {
			if existing, ok := registry.Get(agent.Name); ok {
				logger("warn", "duplicate agent ignored (keeping first discovered)",
					"agent", agent.Name,
					"ignored_path", agent.Path,
					"kept_path", existing.Path,
				)
			}
			return nil
		}

		logger("info", "loaded agent", "agent", agent.Name, "path", agent.Path, "version", agent.Version)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan agents dir %s: %w", absRoot, err)
	}

	return registry, nil
}

// loadAgent reads and validates a single agent.
func loadAgent(agentPath, agentsDir string) (*Agent, error) {
	data, err := os.ReadFile(filepath.Join(agentPath, manifestFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
	}

	if err := validateManifest(&manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if manifest.Protocol != SupportedProtocol {
		return nil, fmt.Errorf("unsupported protocol version %d (supported: %d)", manifest.Protocol, SupportedProtocol)
	}

	entrypointPath := filepath.Join(agentPath, manifest.Entrypoint)
	if err := validateTrust(entrypointPath, agentPath, agentsDir); err != nil {
		return nil, fmt.Errorf("trust validation failed: %w", err)
	}

	return &Agent{
		Name:        manifest.Name,
		Path:        agentPath,
		Entrypoint:  entrypointPath,
		Protocol:    manifest.Protocol,
		Version:     manifest.Version,
		Description: manifest.Description,
		Commands:    manifest.Commands,
	}, nil
}

// validateTrust refuses entrypoints that escape the agents dir, are not
// executable, or live in a world-writable directory.
func validateTrust(entrypointPath, agentPath, agentsDir string) error {
	resolvedEntrypoint, err := filepath.EvalSymlinks(entrypointPath)
	if err != nil {
		return fmt.Errorf("failed to resolve entrypoint symlink: %w", err)
	}
	resolvedAgentPath, err := filepath.EvalSymlinks(agentPath)
	if err != nil {
		return fmt.Errorf("failed to resolve agent path symlink: %w", err)
	}
	resolvedRoot, err := filepath.EvalSymlinks(agentsDir)
	if err != nil {
		return fmt.Errorf("failed to resolve agents dir symlink: %w", err)
	}

	if !strings.HasPrefix(resolvedEntrypoint, resolvedRoot+string(os.PathSeparator)) {
		return fmt.Errorf("entrypoint %s is not under the agents dir", resolvedEntrypoint)
	}
	if !strings.HasPrefix(resolvedEntrypoint, resolvedAgentPath+string(os.PathSeparator)) {
		return fmt.Errorf("entrypoint %s is not under agent directory %s", resolvedEntrypoint, resolvedAgentPath)
	}

	info, err := os.Stat(resolvedEntrypoint)
	if err != nil {
		return fmt.Errorf("entrypoint not found: %w", err)
	}
	if info.Mode()&0111 == 0 {
		return fmt.Errorf("entrypoint is not executable: %s", resolvedEntrypoint)
	}

	dirInfo, err := os.Stat(resolvedAgentPath)
	if err != nil {
		return fmt.Errorf("agent directory not found: %w", err)
	}
	if dirInfo.Mode().Perm()&0002 != 0 {
		return fmt.Errorf("agent directory is world-writable: %s", resolvedAgentPath)
	}

	return nil
}
