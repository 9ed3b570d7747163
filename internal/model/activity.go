package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Activity log name and actions.
const (
	ActivityLogUser = "user"

	ActionUserRegistered = "User registered"
	ActionUserLoggedIn   = "User logged in"
)

// Recognised property keys.
const (
	PropertyIP        = "ip"
	PropertyAgent     = "agent"
	PropertyTimestamp = "timestamp"
)

// ActivityProperties is the typed property set of an activity record.
// Extra carries keys outside the recognised set.
type ActivityProperties struct {
	IP        string
	Agent     string
	Timestamp *time.Time
	Extra     map[string]string
}

// MarshalJSON encodes the properties as one flat object.
func (p ActivityProperties) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+3)
	for k, v := range p.Extra {
		out[k] = v
	}
	out[PropertyIP] = p.IP
	out[PropertyAgent] = p.Agent
	if p.Timestamp != nil {
		out[PropertyTimestamp] = p.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a flat object, routing unknown keys to Extra.
func (p *ActivityProperties) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode activity properties: %w", err)
	}

	*p = ActivityProperties{}
	for k, v := range raw {
		switch k {
		case PropertyIP:
			p.IP = v
		case PropertyAgent:
			p.Agent = v
		case PropertyTimestamp:
			ts, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return fmt.Errorf("decode activity timestamp: %w", err)
			}
			p.Timestamp = &ts
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]string)
			}
			p.Extra[k] = v
		}
	}
	return nil
}

// ActivityRecord is an append-only audit entry.
type ActivityRecord struct {
	ID         string             `json:"id"`
	LogName    string             `json:"log_name"`
	ActorID    string             `json:"actor_id"`
	Action     string             `json:"action"`
	Properties ActivityProperties `json:"properties"`
	CreatedAt  time.Time          `json:"created_at"`
}
