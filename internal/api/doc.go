// Package api exposes the control plane over HTTP: node registration and
// heartbeats, deployment uploads and status, and the name-based content
// gateway.
package api
