package clientpool

import (
	"context"

	"github.com/bayardsearch/bayard/internal/cluster"
)

// Run reconciles the pool against every snapshot on watch until ctx is
// done. watch is expected to be lossy-latest (as
// cluster.Membership.WatchMembers() is); Run only ever acts on the newest
// snapshot available, which is correct since Reconcile is idempotent over
// the full member set rather than a delta.
func (p *Pool) Run(ctx context.Context, watch <-chan *cluster.Members) {
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-watch:
			if !ok {
				return
			}
			p.Reconcile(snapshot)
		}
	}
}
