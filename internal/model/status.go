package model

import "fmt"

// DeploymentStatus is the lifecycle state of a deployment. The zero value is
// not a valid status.
type DeploymentStatus int

const (
	DeploymentPending DeploymentStatus = iota + 1
	DeploymentPublishing
	DeploymentDeployed
	DeploymentFailed
)

var deploymentStatusNames = map[DeploymentStatus]string{
	DeploymentPending:    "PENDING",
	DeploymentPublishing: "PUBLISHING",
	DeploymentDeployed:   "DEPLOYED",
	DeploymentFailed:     "FAILED",
}

func (s DeploymentStatus) String() string {
	if name, ok := deploymentStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("DeploymentStatus(%d)", int(s))
}

func (s DeploymentStatus) IsTerminal() bool {
	return s == DeploymentDeployed || s == DeploymentFailed
}

// CanTransition reports whether moving from s to next keeps the status
// monotonic: PENDING -> PUBLISHING -> DEPLOYED|FAILED.
func (s DeploymentStatus) CanTransition(next DeploymentStatus) bool {
	switch s {
	case DeploymentPending:
		return next == DeploymentPublishing
	case DeploymentPublishing:
		return next == DeploymentDeployed || next == DeploymentFailed
	default:
		return false
	}
}

func (s DeploymentStatus) MarshalText() ([]byte, error) {
	name, ok := deploymentStatusNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid deployment status %d", int(s))
	}
	return []byte(name), nil
}

func (s *DeploymentStatus) UnmarshalText(text []byte) error {
	v, err := ParseDeploymentStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func ParseDeploymentStatus(s string) (DeploymentStatus, error) {
	for status, name := range deploymentStatusNames {
		if name == s {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown deployment status %q", s)
}

// PinStatus is the delivery state of a deployment on a single node.
type PinStatus int

const (
	PinPinning PinStatus = iota + 1
	PinPinned
	PinFailed
)

var pinStatusNames = map[PinStatus]string{
	PinPinning: "PINNING",
	PinPinned:  "PINNED",
	PinFailed:  "FAILED",
}

func (s PinStatus) String() string {
	if name, ok := pinStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PinStatus(%d)", int(s))
}

func (s PinStatus) IsTerminal() bool {
	return s == PinPinned || s == PinFailed
}

// CanTransition allows exactly one move, from PINNING to a terminal state.
func (s PinStatus) CanTransition(next PinStatus) bool {
	return s == PinPinning && next.IsTerminal()
}

func (s PinStatus) MarshalText() ([]byte, error) {
	name, ok := pinStatusNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid pin status %d", int(s))
	}
	return []byte(name), nil
}

func (s *PinStatus) UnmarshalText(text []byte) error {
	v, err := ParsePinStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func ParsePinStatus(s string) (PinStatus, error) {
	for status, name := range pinStatusNames {
		if name == s {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown pin status %q", s)
}

// Ptr returns a pointer to v, for filling patch descriptors.
func Ptr[T any](v T) *T {
	return &v
}
