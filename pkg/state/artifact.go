package state

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ArtifactRootEnv names a scratch directory shared by a test or CI run. When
// it is set and --db is not, the server keeps its database there.
const ArtifactRootEnv = "ALUMNICHAT_ARTIFACT_ROOT"

var (
	artifactOnce sync.Once
	artifactRoot string
)

// ArtifactRoot returns the absolute form of $ALUMNICHAT_ARTIFACT_ROOT, or ""
// when it is unset. The value is read once per process.
func ArtifactRoot() string {
	artifactOnce.Do(func() { artifactRoot = resolveArtifactRoot(os.Getenv) })
	return artifactRoot
}

// ArtifactDatabase is the database directory under the artifact root, or ""
// without one.
func ArtifactDatabase() string {
	root := ArtifactRoot()
	if root == "" {
		return ""
	}
	return filepath.Join(root, "database")
}

func resolveArtifactRoot(getenv func(string) string) string {
	dir := strings.TrimSpace(getenv(ArtifactRootEnv))
	if dir == "" {
		return ""
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}
