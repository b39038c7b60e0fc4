// Package metrics is a thin abstraction over Prometheus so that every
// component in this module can record counts without taking a hard
// dependency on any particular monitoring stack. Passing a nil
// *prometheus.Registry (the default) yields a no-op sink; the hot path
// never pays for a metrics update unless the caller opts in.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Sink is the interface every component depends on. It is deliberately
// small: shard commits/rollbacks, gossip broadcasts, router retries, and
// reconciler actions.
type Sink interface {
	IncCommit(index, shardID string)
	IncRollback(index, shardID string)
	IncBroadcastSent(kind string)
	IncBroadcastReceived(kind string)
	IncRouterRetry(op string)
	IncReconcilerAction(action string)
}

// Noop discards every call. It is the default Sink so library code never
// forces a metrics backend on its caller.
type Noop struct{}

func (Noop) IncCommit(string, string)    {}
func (Noop) IncRollback(string, string)  {}
func (Noop) IncBroadcastSent(string)     {}
func (Noop) IncBroadcastReceived(string) {}
func (Noop) IncRouterRetry(string)       {}
func (Noop) IncReconcilerAction(string)  {}

// Prom records every Sink method as a labeled Prometheus counter.
type Prom struct {
	commits            *prometheus.CounterVec
	rollbacks          *prometheus.CounterVec
	broadcastsSent     *prometheus.CounterVec
	broadcastsReceived *prometheus.CounterVec
	routerRetries      *prometheus.CounterVec
	reconcilerActions  *prometheus.CounterVec
}

// NewProm builds a Prom sink and registers its collectors on reg. reg must
// not be nil.
func NewProm(reg *prometheus.Registry) *Prom {
	p := &Prom{
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bayard",
			Name:      "shard_commits_total",
			Help:      "Number of shard batch commits.",
		}, []string{"index", "shard"}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bayard",
			Name:      "shard_rollbacks_total",
			Help:      "Number of shard batch rollbacks.",
		}, []string{"index", "shard"}),
		broadcastsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bayard",
			Name:      "gossip_broadcasts_sent_total",
			Help:      "Number of application messages queued onto the gossip broadcast channel.",
		}, []string{"kind"}),
		broadcastsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bayard",
			Name:      "gossip_broadcasts_received_total",
			Help:      "Number of application messages received from the gossip broadcast channel.",
		}, []string{"kind"}),
		routerRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bayard",
			Name:      "router_retries_total",
			Help:      "Number of retry/rotate attempts issued by the router beyond the first.",
		}, []string{"op"}),
		reconcilerActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bayard",
			Name:      "reconciler_actions_total",
			Help:      "Number of shard assign/unassign actions taken by the reconciler.",
		}, []string{"action"}),
	}
	reg.MustRegister(p.commits, p.rollbacks, p.broadcastsSent, p.broadcastsReceived, p.routerRetries, p.reconcilerActions)
	return p
}

func (p *Prom) IncCommit(index, shardID string)   { p.commits.WithLabelValues(index, shardID).Inc() }
func (p *Prom) IncRollback(index, shardID string) { p.rollbacks.WithLabelValues(index, shardID).Inc() }
func (p *Prom) IncBroadcastSent(kind string)      { p.broadcastsSent.WithLabelValues(kind).Inc() }
func (p *Prom) IncBroadcastReceived(kind string)  { p.broadcastsReceived.WithLabelValues(kind).Inc() }
func (p *Prom) IncRouterRetry(op string)          { p.routerRetries.WithLabelValues(op).Inc() }
func (p *Prom) IncReconcilerAction(action string) { p.reconcilerActions.WithLabelValues(action).Inc() }

// New decides which implementation to use. A nil registry yields Noop.
func New(reg *prometheus.Registry) Sink {
	if reg == nil {
		return Noop{}
	}
	return NewProm(reg)
}
