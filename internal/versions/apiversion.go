package versions

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// NormalizeAPIVersion parses a repository API version such as "v1", "1" or
// "v1.2" and returns its path form ("v1", "v1.2"). Patch levels and
// prerelease tags are not valid in an API path.
func NormalizeAPIVersion(v string) (string, error) {
	parsed, err := semver.NewVersion(strings.TrimSpace(v))
	if err != nil {
		return "", fmt.Errorf("invalid API version %q: %w", v, err)
	}
	if parsed.Patch() != 0 || parsed.Prerelease() != "" || parsed.Metadata() != "" {
		return "", fmt.Errorf("invalid API version %q: only major and minor parts are allowed", v)
	}
	if parsed.Minor() == 0 {
		return fmt.Sprintf("v%d", parsed.Major()), nil
	}
	return fmt.Sprintf("v%d.%d", parsed.Major(), parsed.Minor()), nil
}
