package ws

import (
	"encoding/json"
	"fmt"
	"log"

	"ctn_registry/internal/db"
	"ctn_registry/internal/model"
)

// Feed topics
const (
	TopicDirectory = "directory"
	TopicGrants    = "grants"
)

// PublishEvent journals a feed event and broadcasts it to connected
// clients. Broadcast failure never affects the primary flow: the event is
// durable in ws_events and clients recover it via request:directory.
// eventType: "add", "update", "delete"
func PublishEvent(topic, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[WebSocket] Failed to marshal payload: %v", err)
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := model.WSEvent{
		Topic:     topic,
		EventType: eventType,
		Payload:   string(payloadJSON),
	}

	if err := db.GetDB().Create(&event).Error; err != nil {
		log.Printf("[WebSocket] Failed to write event to database: %v", err)
		return fmt.Errorf("failed to write event to database: %w", err)
	}

	BroadcastToAll(topic+":update", map[string]interface{}{
		"eventId": event.ID,
		"type":    eventType,
		"data":    payload,
	})

	return nil
}

// PublishDirectoryEvent notifies clients that the published-endpoint
// directory changed
func PublishDirectoryEvent(eventType string, payload interface{}) {
	if err := PublishEvent(TopicDirectory, eventType, payload); err != nil {
		log.Printf("[WebSocket] directory event dropped: %v", err)
	}
}

// PublishGrantEvent notifies clients about access-request/grant decisions
func PublishGrantEvent(eventType string, payload interface{}) {
	if err := PublishEvent(TopicGrants, eventType, payload); err != nil {
		log.Printf("[WebSocket] grant event dropped: %v", err)
	}
}
