package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wricardo/heroduel/game/engine"
)

var ErrMalformed = errors.New("malformed message")

// Envelope is one websocket frame: a named event and its payload
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EntityView is one entity as clients see it
type EntityView struct {
	Tags       []string                 `json:"tags"`
	Components map[string][]interface{} `json:"components"`
}

// World is the HTTP view of an active room
type World struct {
	MapID  string                `json:"mapId"`
	Heroes map[string]EntityView `json:"heroes"`
}

// GroupSnapshot regroups the engine's flat entity list into
// {entityId: {tags, components: {Type: [payload...]}}}
func GroupSnapshot(snap engine.Snapshot) map[string]EntityView {
	out := make(map[string]EntityView, len(snap.Entities))
	for _, e := range snap.Entities {
		view := EntityView{
			Tags:       append([]string{}, e.Tags...),
			Components: make(map[string][]interface{}),
		}
		for _, c := range e.Components {
			view.Components[c.Type] = append(view.Components[c.Type], c.Data)
		}
		out[e.ID] = view
	}
	return out
}

// NewWorld builds the HTTP world view of a snapshot
func NewWorld(snap engine.Snapshot) World {
	return World{MapID: snap.MapID, Heroes: GroupSnapshot(snap)}
}

// Encode marshals an outbound event. Engine snapshots are regrouped first.
func Encode(event string, payload interface{}) ([]byte, error) {
	switch p := payload.(type) {
	case engine.Snapshot:
		payload = GroupSnapshot(p)
	case *engine.Snapshot:
		if p != nil {
			payload = GroupSnapshot(*p)
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %q payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// Decode parses an inbound frame
func Decode(frame []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("%w: missing event name", ErrMalformed)
	}
	return &env, nil
}

// Bind unmarshals an envelope's payload into v
func (e *Envelope) Bind(v interface{}) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return fmt.Errorf("%w: %q has no data", ErrMalformed, e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrMalformed, e.Event, err)
	}
	return nil
}
