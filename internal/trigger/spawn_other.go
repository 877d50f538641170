//go:build !unix

package trigger

import (
	"fmt"
	"runtime"
)

// DetachedSpawner is unavailable on this platform.
type DetachedSpawner struct{}

// Spawn always fails: sessions are a unix concept.
func (DetachedSpawner) Spawn(spec SpawnSpec) (int, error) {
	return 0, fmt.Errorf("detached deployments are not supported on %s", runtime.GOOS)
}
