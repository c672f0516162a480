// Package doctor validates podflow configuration and agent setup.
package doctor

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"

	"github.com/ferrolab/podflow/internal/agent"
	"github.com/ferrolab/podflow/internal/config"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates configuration against discovered agents.
type Doctor struct {
	cfg      *config.Config
	registry *agent.Registry
}

// New creates a Doctor from a loaded config and agent registry. The registry
// may be nil when agent discovery itself failed.
func New(cfg *config.Config, registry *agent.Registry) *Doctor {
	return &Doctor{cfg: cfg, registry: registry}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateServiceConfig(r)
	d.validateAPIConfig(r)
	d.validateAgents(r)
	d.warnMissingEnvVars(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) validateServiceConfig(r *Result) {
	if d.cfg.State.Path == "" {
		d.addError(r, "service", "state.path", "state.path is required")
	}
	if d.cfg.Agents.Dir == "" {
		d.addError(r, "service", "agents.dir", "agents.dir is required")
	}
	if d.cfg.Workflow.DirectMergeWindow < 0 {
		d.addError(r, "workflow", "workflow.direct_merge_window", "must not be negative")
	}
}

func (d *Doctor) validateAPIConfig(r *Result) {
	if !d.cfg.API.Enabled {
		return
	}
	if _, _, err := net.SplitHostPort(d.cfg.API.Listen); err != nil {
		d.addError(r, "api", "api.listen", fmt.Sprintf("invalid listen address: %v", err))
	}
	if d.cfg.API.Auth.APIKey == "" {
		d.addWarning(r, "api", "api.auth.api_key",
			"no API key configured; all endpoints are unauthenticated")
	}
}

func (d *Doctor) validateAgents(r *Result) {
	if d.registry == nil {
		d.addError(r, "agents", "agents.dir",
			fmt.Sprintf("agent discovery failed for %s", d.cfg.Agents.Dir))
		return
	}

	agents := d.registry.All()
	if len(agents) == 0 {
		d.addWarning(r, "agents", "agents.dir",
			fmt.Sprintf("no agents discovered in %s; pods cannot run", d.cfg.Agents.Dir))
		return
	}

	for name, a := range agents {
		if !a.SupportsCommand("chat") {
			d.addWarning(r, "agents", name,
				"agent does not declare the chat command; it cannot be a pod target")
		}
		if !a.SupportsCommand("summarize") {
			d.addWarning(r, "agents", name,
				"agent does not declare the summarize command; it cannot be a pod source")
		}
	}
}

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// warnMissingEnvVars flags values that still contain unresolved ${VAR}
// placeholders after loading.
func (d *Doctor) warnMissingEnvVars(r *Result) {
	check := func(field, value string) {
		for _, m := range envRefPattern.FindAllStringSubmatch(value, -1) {
			if _, ok := os.LookupEnv(m[1]); !ok {
				d.addWarning(r, "env", field,
					fmt.Sprintf("references unset environment variable ${%s}", m[1]))
			}
		}
	}
	check("state.path", d.cfg.State.Path)
	check("agents.dir", d.cfg.Agents.Dir)
	check("api.listen", d.cfg.API.Listen)
}

// FormatHuman renders the result for terminal output.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
