package model

import (
	"net"
	"strconv"
	"time"
)

// Address is the network location a node accepts deploy calls on.
type Address struct {
	Host string `json:"ip" validate:"required"`
	Port int    `json:"port" validate:"required,min=1,max=65535"`
}

func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// NodeRecord is the liveness entry for a registered node.
type NodeRecord struct {
	ID            string    `json:"id"`
	Address       Address   `json:"address"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// Age returns how long ago the node last proved liveness.
func (n NodeRecord) Age(now time.Time) time.Duration {
	return now.Sub(n.LastHeartbeat)
}
