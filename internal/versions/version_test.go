package versions

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfoWithValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		version         string
		commit          string
		buildDate       string
		expectedVersion string
		expectedDate    string
	}{
		{
			name:            "release build",
			version:         "v0.3.0",
			commit:          "0123456789abcdef",
			buildDate:       "2025-01-15T10:30:00Z",
			expectedVersion: "v0.3.0",
			expectedDate:    "2025-01-15 10:30:00 UTC",
		},
		{
			name:            "dev build with commit",
			version:         "dev",
			commit:          "0123456789abcdef",
			buildDate:       "not-a-date",
			expectedVersion: "build-01234567",
			expectedDate:    "not-a-date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := getVersionInfoWithValues(tt.version, tt.commit, tt.buildDate)
			assert.Equal(t, tt.expectedVersion, info.Version)
			assert.Equal(t, tt.commit, info.Commit)
			assert.Equal(t, tt.expectedDate, info.BuildDate)
			assert.Equal(t, runtime.Version(), info.GoVersion)
			assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
		})
	}
}
