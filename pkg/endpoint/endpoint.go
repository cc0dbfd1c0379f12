// Package endpoint constructs the fully qualified URLs for backend calls.
package endpoint

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agentgate/agentgate/pkg/deployment"
	"github.com/agentgate/agentgate/pkg/errors"
)

// Operation is the kind of backend call being made.
type Operation string

const (
	// OperationQuery is a unary agent query.
	OperationQuery Operation = "query"

	// OperationStreamQuery is a streaming agent query.
	OperationStreamQuery Operation = "streamQuery"

	// OperationSessions addresses the session management API.
	OperationSessions Operation = "sessions"
)

// reasoningEnginePattern matches the resource URL shape of a managed
// agent-engine endpoint and captures the host and the resource path.
var reasoningEnginePattern = regexp.MustCompile(
	`^https://([^/]+)/v1/(projects/[^/]+/locations/[^/]+/reasoningEngines/[^/]+)$`)

// Builder maps a logical path and operation kind to a request URL for the
// resolved deployment. It is stateless apart from the injected config.
type Builder struct {
	cfg *deployment.Config
}

// NewBuilder creates a Builder for the given endpoint configuration.
func NewBuilder(cfg *deployment.Config) *Builder {
	return &Builder{cfg: cfg}
}

// BuildURL returns the fully qualified URL for the given operation and
// logical path. Outside agent-engine mode the path is appended to the
// backend URL as-is and the operation kind is ignored.
func (b *Builder) BuildURL(op Operation, path string) (string, error) {
	if b.cfg.Type != deployment.TypeAgentEngine || b.cfg.AgentEngineURL == "" {
		return b.cfg.BackendURL + path, nil
	}

	switch op {
	case OperationQuery:
		return b.cfg.AgentEngineURL + ":query", nil
	case OperationStreamQuery:
		return b.cfg.AgentEngineURL + ":streamQuery", nil
	case OperationSessions:
		return b.sessionsURL(path)
	default:
		return "", errors.NewInternalError(fmt.Sprintf("unknown operation kind %q", op), nil)
	}
}

// sessionsURL derives the session API base from the configured engine URL.
// The sessions surface lives under a different API version than the query
// surface, so the v1 resource URL is rebuilt against v1beta1.
func (b *Builder) sessionsURL(path string) (string, error) {
	m := reasoningEnginePattern.FindStringSubmatch(b.cfg.AgentEngineURL)
	if m == nil {
		return "", errors.NewConfigurationError(
			fmt.Sprintf("agent engine URL %q does not match the expected reasoningEngines resource shape",
				b.cfg.AgentEngineURL), nil)
	}

	// Callers may pass the full logical path; normalize to the sub-path
	// under the sessions segment.
	path = strings.TrimPrefix(path, "/sessions")

	host, resource := m[1], m[2]
	return fmt.Sprintf("https://%s/v1beta1/%s/sessions%s", host, resource, path), nil
}
