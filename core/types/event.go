package types

// Event is the wire form of a structured observation emitted during a state
// transition. Attributes are stringly typed so downstream consumers can index
// them without schema knowledge.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
