package auth

import (
	"path"
	"strings"
)

// DefaultPublicPaths are served without authentication unless the
// configuration lists its own.
var DefaultPublicPaths = []string{"/health", "/readiness", "/version", "/metrics"}

// IsPublicPath checks if a path should bypass authentication.
// It performs secure path matching by:
// 1. Rejecting paths with encoded path separators to prevent double-encoding attacks
// 2. Normalizing the path to prevent traversal attacks (e.g., /health/../v1/schemas/list)
// 3. Using segment-aware matching so /health matches /health and /health/check but NOT /healthcheck
func IsPublicPath(requestPath string, publicPaths []string) bool {
	// %2f = /, %2e = .
	lowerPath := strings.ToLower(requestPath)
	if strings.Contains(lowerPath, "%2f") || strings.Contains(lowerPath, "%2e") {
		return false
	}

	cleanPath := cleanAbs(requestPath)

	for _, publicPath := range publicPaths {
		cleanPublicPath := cleanAbs(publicPath)

		// "/" makes everything public
		if cleanPublicPath == "/" {
			return true
		}
		if cleanPath == cleanPublicPath || strings.HasPrefix(cleanPath, cleanPublicPath+"/") {
			return true
		}
	}
	return false
}

func cleanAbs(p string) string {
	p = path.Clean(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
