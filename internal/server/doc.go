// Package server hosts the Fiber HTTP service that fronts the caching proxy:
// request id middleware, panic recovery, diagnostics host routing and the
// shared upstream http.Client. Proxy semantics live in package proxy; this
// package only decides whether a request is a diagnostics call or a flow.
package server
