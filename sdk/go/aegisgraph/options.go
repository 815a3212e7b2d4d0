package aegisgraph

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	configPath string
	auditPath  string
}

// WithConfigPath sets the path to the service config YAML. Empty falls
// back to ~/.aegisgraph/config.yaml, then to built-in defaults.
func WithConfigPath(path string) Option {
	return func(c *clientConfig) { c.configPath = path }
}

// WithAuditLog overrides the audit log path from the config file.
func WithAuditLog(path string) Option {
	return func(c *clientConfig) { c.auditPath = path }
}
