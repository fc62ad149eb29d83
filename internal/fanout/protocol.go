// Package fanout is the WebSocket gateway (spec.md §4.8): per-client
// subscription sets over the bridges/boats channels and their region
// sub-channels, pushed on change.
package fanout

import "encoding/json"

// SubscribeMessage is the only recognized inbound action.
type SubscribeMessage struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

// OutMessage is the {type, data} envelope every outbound frame uses.
type OutMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SubscribedMessage acknowledges an updated subscription set.
type SubscribedMessage struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
}

func newSubscribedFrame(channels []string) ([]byte, error) {
	return json.Marshal(SubscribedMessage{Type: "subscribed", Channels: channels})
}

func newDataFrame(channelType string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(OutMessage{Type: channelType, Data: payload})
}

// topLevel returns the top-level channel a given channel name belongs to
// ("bridges" or "boats"), and whether name is recognized at all. A bare
// "bridges" or "boats" channel matches every message of that type; a
// "bridges:sct"-style sub-channel matches only its own region.
func topLevel(name string) (string, bool) {
	switch {
	case name == "bridges" || name == "boats":
		return name, true
	case len(name) > len("bridges:") && name[:len("bridges:")] == "bridges:":
		return "bridges", true
	case len(name) > len("boats:") && name[:len("boats:")] == "boats:":
		return "boats", true
	default:
		return "", false
	}
}
