/*
Package ratelimit groups the rate limiting primitives used by hitpool.

  - admission: token bucket throttling how fast the acceptor turns
    connections into scheduler tasks

Admission is optional. Without it every accepted connection is handed to the
scheduler immediately and the unbounded signal queue absorbs bursts:

	limiter := admission.New(500, 50) // 500 connections/sec, burst of 50
	srv, err := server.New(server.Config{Admission: limiter}, sched, counter)

Wait blocks the accept loop, not the client, so excess connections wait in
the kernel's listen backlog instead of in the scheduler's queue.
*/
package ratelimit
