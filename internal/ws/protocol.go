package ws

import (
	"encoding/json"
	"fmt"
)

// Upstream message types for internal routing
type (
	joinGroupRequest struct {
		group string
		ackID *uint64
	}
	leaveGroupRequest struct {
		group string
		ackID *uint64
	}
	pingRequest struct{}
)

type upstreamMessage struct {
	Type  string  `json:"type"`
	Group string  `json:"group"`
	AckID *uint64 `json:"ackId"`
}

// parseUpstreamMessage parses a JSON upstream message. Both subprotocols send
// control messages as JSON text.
func parseUpstreamMessage(data []byte) (any, error) {
	var msg upstreamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal upstream message: %w", err)
	}

	switch msg.Type {
	case "joinGroup":
		return &joinGroupRequest{group: msg.Group, ackID: msg.AckID}, nil
	case "leaveGroup":
		return &leaveGroupRequest{group: msg.Group, ackID: msg.AckID}, nil
	case "ping":
		return &pingRequest{}, nil
	default:
		return nil, fmt.Errorf("unknown message type: %q", msg.Type)
	}
}

// buildConnectedMessage greets a new connection.
func buildConnectedMessage(connectionID, protocol string) []byte {
	msg := map[string]interface{}{
		"type":         "system",
		"event":        "connected",
		"connectionId": connectionID,
		"protocol":     protocol,
	}
	data, _ := json.Marshal(msg)
	return data
}

// buildAckMessage creates an acknowledgment message.
func buildAckMessage(ackID uint64, success bool, reason string) []byte {
	msg := map[string]interface{}{
		"type":    "ack",
		"ackId":   ackID,
		"success": success,
	}
	if reason != "" {
		msg["error"] = reason
	}
	data, _ := json.Marshal(msg)
	return data
}

// buildErrorMessage reports an unparseable upstream message.
func buildErrorMessage(reason string) []byte {
	data, _ := json.Marshal(map[string]interface{}{
		"type":  "error",
		"error": reason,
	})
	return data
}

// buildPongMessage creates a pong in reply to a client ping.
func buildPongMessage() []byte {
	data, _ := json.Marshal(map[string]interface{}{"type": "pong"})
	return data
}

// buildDataMessage wraps a chain payload for a group.
func buildDataMessage(group string, payload json.RawMessage) []byte {
	msg := map[string]interface{}{
		"type":  "message",
		"group": group,
		"data":  payload,
	}
	data, _ := json.Marshal(msg)
	return data
}
