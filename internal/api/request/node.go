package request

// RegisterNode announces a node. IP defaults to the caller's address.
type RegisterNode struct {
	ID   string `json:"id" validate:"required,node_id"`
	IP   string `json:"ip" validate:"omitempty,ip"`
	Port int    `json:"port" validate:"required,min=1,max=65535"`
}

type HeartbeatNode struct {
	ID string `json:"id" validate:"required,node_id"`
}
