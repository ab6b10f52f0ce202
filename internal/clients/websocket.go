package clients

import (
	"context"

	ws "bcp-export/internal/transport/websocket"
)

// WebSocketClient pushes run notifications to the signed-in user's browser
// tabs.
type WebSocketClient struct {
	hub *ws.Hub
}

func NewWebSocketClient(hub *ws.Hub) *WebSocketClient {
	return &WebSocketClient{
		hub: hub,
	}
}

func (c *WebSocketClient) NotifyRunProgress(
	ctx context.Context,
	user string,
	runID string,
	progress float64,
	stage string,
) error {
	if c.hub == nil || user == "" {
		return nil
	}

	data := map[string]interface{}{
		"id":       runID,
		"progress": progress,
	}
	if stage != "" {
		data["stage"] = stage
	}

	c.hub.Broadcast(user, &ws.Message{
		Type:    "run_progress",
		Channel: "notify_user_of_run_progress#" + user,
		Data:    data,
	})
	return nil
}

func (c *WebSocketClient) NotifyRunComplete(
	ctx context.Context,
	user string,
	runID string,
	url string,
	filename string,
) error {
	if c.hub == nil || user == "" {
		return nil
	}

	c.hub.Broadcast(user, &ws.Message{
		Type:    "run_complete",
		Channel: "notify_user_when_run_complete#" + user,
		Data: map[string]interface{}{
			"id":       runID,
			"url":      url,
			"filename": filename,
		},
	})
	return nil
}

// NotifyRunFailed tells the user a run stopped, with the stage-qualified
// error message.
func (c *WebSocketClient) NotifyRunFailed(ctx context.Context, user string, runID string, errMsg string) error {
	if c.hub == nil || user == "" {
		return nil
	}

	c.hub.Broadcast(user, &ws.Message{
		Type:    "run_failed",
		Channel: "notify_user_when_run_failed#" + user,
		Data: map[string]interface{}{
			"id":      runID,
			"message": errMsg,
		},
	})
	return nil
}
