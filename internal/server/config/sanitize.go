package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if sanitized.Cluster.IdentityValue != "" {
		sanitized.Cluster.IdentityValue = maskSecret(sanitized.Cluster.IdentityValue)
	}

	// Slices are shared with the original after the shallow copy.
	sanitized.Cluster.Members = append([]string(nil), cfg.Cluster.Members...)
	sanitized.Cluster.Gossip.Seeds = append([]string(nil), cfg.Cluster.Gossip.Seeds...)
	sanitized.Server.HTTP.AdminAllowList = append([]string(nil), cfg.Server.HTTP.AdminAllowList...)

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
