package model

import "time"

type Deployment struct {
	ID        string           `json:"id" db:"id"`
	AppID     string           `json:"app_id" db:"app_id"`
	CID       string           `json:"cid" db:"cid"`
	Status    DeploymentStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// DeploymentPatch lists the deployment fields an update may change.
type DeploymentPatch struct {
	CID    *string
	Status *DeploymentStatus
}

func (p DeploymentPatch) IsEmpty() bool {
	return p.CID == nil && p.Status == nil
}

// DeploymentNode tracks delivery of one deployment to one node.
type DeploymentNode struct {
	ID           string    `json:"id" db:"id"`
	DeploymentID string    `json:"deployment_id" db:"deployment_id"`
	NodeID       string    `json:"node_id" db:"node_id"`
	Status       PinStatus `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type DeploymentNodePatch struct {
	Status *PinStatus
}

func (p DeploymentNodePatch) IsEmpty() bool {
	return p.Status == nil
}
