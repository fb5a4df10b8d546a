package ratelimit

import "strings"

// unlimited lists "METHOD path" routes that are never throttled.
var unlimited = map[string]bool{
	"GET /health": true,
}

var unlimitedConfig = EndpointConfig{}

// MatchEndpoint picks the configuration governing method and path. Exact
// paths win; otherwise the longest configured prefix ending in "/" applies,
// so "/document/" covers "/document/experience/{id}". Returns nil when no
// entry matches and the default limit should be used.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if unlimited[method+" "+path] {
		cfg := unlimitedConfig
		return &cfg
	}

	var best *EndpointConfig
	for i := range configs {
		c := &configs[i]
		if c.Method != method {
			continue
		}
		if c.Path == path {
			return c
		}
		if strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			if best == nil || len(c.Path) > len(best.Path) {
				best = c
			}
		}
	}
	return best
}
