package ops

import (
	"github.com/calebsh/offcut/internal/retention"
)

// CleanupInput triggers a manual retention sweep.
type CleanupInput struct {
	DryRun bool
}

// Cleanup runs the retention sweep on demand. With DryRun it reports what
// would be deleted without touching anything.
func Cleanup(env *Env, in CleanupInput) (*retention.Summary, error) {
	sw := &retention.Sweeper{Cfg: env.Cfg, Store: env.Store, Log: env.Log}
	return sw.Sweep(env.now(), in.DryRun)
}
