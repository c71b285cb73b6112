package deploy

import "fmt"

// StoreError means the content store rejected or never received the
// content. It aborts a deployment before any record is created.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("add content: %v", e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// KeyError means the naming key for an application could not be found or
// created. Content stays reachable by CID.
type KeyError struct {
	App string
	Err error
}

func (e *KeyError) Error() string { return fmt.Sprintf("naming key for %q: %v", e.App, e.Err) }
func (e *KeyError) Unwrap() error { return e.Err }

// PublishError means the name could not be pointed at the new CID.
type PublishError struct {
	Key string
	CID string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s -> %s: %v", e.Key, e.CID, e.Err)
}
func (e *PublishError) Unwrap() error { return e.Err }

// DeliveryError means a single node did not accept a deploy call. Status is
// the HTTP status when the node answered, zero otherwise.
type DeliveryError struct {
	NodeID string
	Status int
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("deliver to node %s: status %d", e.NodeID, e.Status)
	}
	return fmt.Sprintf("deliver to node %s: %v", e.NodeID, e.Err)
}
func (e *DeliveryError) Unwrap() error { return e.Err }
