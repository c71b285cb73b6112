// Package registry tracks which nodes are currently alive.
//
// A Registry maps node IDs to liveness records. Nodes prove liveness by
// heartbeating; a Sweeper periodically evicts records whose last heartbeat
// is older than the staleness window. All registry operations are pure
// in-memory work under a single RWMutex and never perform I/O while the
// lock is held.
package registry
