// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// queryTimeout and scanTimeout are the two per-route timeout
// classes: 500ms for lookups that touch only in-memory structures, 5s
// for routes that walk or scan the filesystem.
const (
	queryTimeout = 500 * time.Millisecond
	scanTimeout  = 5 * time.Second
)

// localOnly rejects any request whose remote address is not loopback,
// defense in depth alongside binding the listener to 127.0.0.1 itself
//.
func localOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			http.Error(w, "forbidden: nextread only serves localhost", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withTimeout wraps a route group in chi/middleware's Timeout, which
// cancels the request context after d. A handler that does not watch
// its context is not interrupted and runs to completion.
func withTimeout(d time.Duration) func(http.Handler) http.Handler {
	return middleware.Timeout(d)
}
