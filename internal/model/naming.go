package model

// NamingKey is a key held by the name service that authors the mutable
// name of one application.
type NamingKey struct {
	Name string `json:"Name"`
	ID   string `json:"Id"`
}

// PublishedName is the result of pointing a name at a content identifier.
type PublishedName struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}
