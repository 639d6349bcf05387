package ws

import (
	"log"

	socketio "github.com/googollee/go-socket.io"

	"ctn_registry/internal/db"
	"ctn_registry/internal/model"
)

// DirectoryItem is one published endpoint in the feed snapshot
type DirectoryItem struct {
	ID            string  `json:"id"`
	LegalEntityID string  `json:"legalEntityId"`
	Name          string  `json:"endpointName"`
	Description   *string `json:"description"`
	EndpointType  *string `json:"endpointType"`
	DataCategory  *string `json:"dataCategory"`
	AccessModel   string  `json:"accessModel"`
	PublishedAt   string  `json:"publishedAt"`
}

// handleRequestDirectory answers request:directory with the current
// published-endpoint snapshot plus the latest journal position, so the
// client can resume from directory:update events.
func handleRequestDirectory(s socketio.Conn, _ interface{}) {
	var endpoints []model.Endpoint
	err := db.GetDB().
		Where("publication_status = ? AND is_active = ? AND is_deleted = ?",
			model.PublicationStatusPublished, true, false).
		Order("published_at DESC").
		Limit(10000).
		Find(&endpoints).Error
	if err != nil {
		log.Printf("[WebSocket] Failed to query directory: %v", err)
		s.Emit("error", map[string]interface{}{
			"message": "Failed to query directory",
		})
		return
	}

	items := make([]DirectoryItem, 0, len(endpoints))
	for _, ep := range endpoints {
		item := DirectoryItem{
			ID:            ep.ID,
			LegalEntityID: ep.LegalEntityID,
			Name:          ep.Name,
			Description:   ep.Description,
			EndpointType:  ep.EndpointType,
			DataCategory:  ep.DataCategory,
			AccessModel:   ep.AccessModel,
		}
		if ep.PublishedAt != nil {
			item.PublishedAt = ep.PublishedAt.Format("2006-01-02 15:04:05")
		}
		items = append(items, item)
	}

	lastEventID := latestEventID()
	s.Emit("directory:initial", map[string]interface{}{
		"items":       items,
		"total":       len(items),
		"lastEventId": lastEventID,
	})
}

// latestEventID returns the newest journal id for the directory topic
func latestEventID() int64 {
	var event model.WSEvent
	err := db.GetDB().
		Where("topic = ?", TopicDirectory).
		Order("id DESC").
		First(&event).Error
	if err != nil {
		return 0
	}
	return event.ID
}
