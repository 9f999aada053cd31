package ratelimit

import "strings"

// matchEndpoint resolves the budget for a request path and method.
// Exact path wins over a trailing-slash prefix entry, so "/catalog/"
// covers "/catalog/{name}" lookups without a config per method name.
// The health endpoint is always unlimited.
func matchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" && method == "GET" {
		return &EndpointConfig{}
	}

	var prefix *EndpointConfig
	for i := range configs {
		ec := &configs[i]
		if ec.Method != method {
			continue
		}
		if ec.Path == path {
			return ec
		}
		if prefix == nil && strings.HasSuffix(ec.Path, "/") && strings.HasPrefix(path, ec.Path) {
			prefix = ec
		}
	}
	return prefix
}
