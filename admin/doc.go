// Package admin exposes a Runtime over HTTP for operators.
//
// The router serves liveness and readiness probes and Prometheus metrics.
// It lists snapshots, pending shared calls and clients, reads the global
// configuration, changes the snapshot limit and drops cached responses of a
// client. Responses are JSON except /metrics.
//
//	srv := admin.New(rt)
//	http.ListenAndServe(":8081", srv.Handler())
package admin
