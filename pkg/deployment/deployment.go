// Package deployment resolves where the agent backend lives and how the
// gateway should talk to it, based on the process environment.
//
// The resolved Config is computed once at startup and injected into whatever
// handles requests; nothing in this package re-reads the environment after
// Resolve returns.
package deployment

import (
	"github.com/agentgate/agentgate/pkg/env"
	"github.com/agentgate/agentgate/pkg/errors"
	"github.com/agentgate/agentgate/pkg/logger"
)

// Type identifies the deployment target the gateway forwards requests to.
type Type string

const (
	// TypeLocal is a backend process running on the same host.
	TypeLocal Type = "local"

	// TypeAgentEngine is a managed agent-engine endpoint addressed via a
	// projects/locations/reasoningEngines resource URL.
	TypeAgentEngine Type = "agent_engine"

	// TypeCloudRun is a containerized backend service.
	TypeCloudRun Type = "cloud_run"
)

// Environment describes where this process itself is running. It is
// informational only; behavior is driven by Type.
type Environment string

const (
	// EnvironmentLocal means the gateway runs outside any cloud runtime.
	EnvironmentLocal Environment = "local"

	// EnvironmentCloud means the gateway runs inside a cloud runtime.
	EnvironmentCloud Environment = "cloud"
)

// Environment variable names consumed by Resolve. The names are the literal
// contract shared with the deployment tooling and must not be renamed.
const (
	// EnvAgentEngineEndpoint selects agent-engine mode and carries the
	// fully qualified reasoning-engine resource URL.
	EnvAgentEngineEndpoint = "AGENT_ENGINE_ENDPOINT"

	// EnvKnativeService is set by the Cloud Run runtime.
	EnvKnativeService = "K_SERVICE"

	// EnvCloudRunService is set by deployment tooling targeting Cloud Run.
	EnvCloudRunService = "CLOUD_RUN_SERVICE"

	// EnvCloudRunServiceURL carries the URL of the backend Cloud Run service.
	EnvCloudRunServiceURL = "CLOUD_RUN_SERVICE_URL"

	// EnvBackendURL carries a generic backend base URL override.
	EnvBackendURL = "BACKEND_URL"

	// EnvGoogleCloudProject is set when running with a cloud project context.
	EnvGoogleCloudProject = "GOOGLE_CLOUD_PROJECT"

	// EnvFunctionName is set by the Cloud Functions runtime.
	EnvFunctionName = "FUNCTION_NAME"
)

// DefaultBackendURL is the backend used when no URL variable is set.
const DefaultBackendURL = "http://127.0.0.1:8000"

// Config is the resolved endpoint configuration. It is immutable after
// Resolve; concurrent readers need no synchronization.
type Config struct {
	// BackendURL is the fully qualified base URL of the backend. Non-empty.
	BackendURL string

	// AgentEngineURL is the reasoning-engine resource URL. Set exactly when
	// Type is TypeAgentEngine.
	AgentEngineURL string

	// Environment reports where this process runs.
	Environment Environment

	// Type selects how requests are forwarded and authenticated.
	Type Type
}

// Resolve derives the endpoint configuration from the environment. It fails
// only on configuration errors, which are fatal at startup.
func Resolve(envReader env.Reader) (*Config, error) {
	typ := detectType(envReader)

	backendURL, err := resolveBackendURL(typ, envReader)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BackendURL:     backendURL,
		AgentEngineURL: envReader.Getenv(EnvAgentEngineEndpoint),
		Environment:    detectEnvironment(envReader),
		Type:           typ,
	}

	logger.Debugw("resolved endpoint configuration",
		"deployment_type", cfg.Type,
		"environment", cfg.Environment,
		"backend_url", cfg.BackendURL,
	)

	return cfg, nil
}

// detectType picks the deployment type in fixed priority order: an explicit
// agent-engine endpoint wins over Cloud Run signals, which win over the bare
// local default.
func detectType(envReader env.Reader) Type {
	if envReader.Getenv(EnvAgentEngineEndpoint) != "" {
		return TypeAgentEngine
	}
	if envReader.Getenv(EnvKnativeService) != "" || envReader.Getenv(EnvCloudRunService) != "" {
		return TypeCloudRun
	}
	return TypeLocal
}

// detectEnvironment reports cloud when any of the cloud runtime variables
// is present.
func detectEnvironment(envReader env.Reader) Environment {
	if envReader.Getenv(EnvGoogleCloudProject) != "" ||
		envReader.Getenv(EnvKnativeService) != "" ||
		envReader.Getenv(EnvFunctionName) != "" {
		return EnvironmentCloud
	}
	return EnvironmentLocal
}

// resolveBackendURL is a pure function of the deployment type and the
// environment. For agent-engine mode the endpoint variable is a deployment
// secret and its absence is fatal; the other modes degrade through the URL
// fallback chain instead.
func resolveBackendURL(typ Type, envReader env.Reader) (string, error) {
	switch typ {
	case TypeAgentEngine:
		endpoint := envReader.Getenv(EnvAgentEngineEndpoint)
		if endpoint == "" {
			return "", errors.NewConfigurationError(
				EnvAgentEngineEndpoint+" must be set for agent-engine deployments", nil)
		}
		return endpoint, nil
	case TypeCloudRun:
		if u := envReader.Getenv(EnvCloudRunServiceURL); u != "" {
			return u, nil
		}
		fallthrough
	default:
		if u := envReader.Getenv(EnvBackendURL); u != "" {
			return u, nil
		}
		return DefaultBackendURL, nil
	}
}
