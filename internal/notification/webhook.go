package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/greenwatch/landsat-monitor/internal/properties"
)

type WebhookMessage struct {
	Embeds []WebhookEmbed `json:"embeds"`
}

type WebhookEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

// SendErrorNotification posts a failure report to the configured webhook.
// Notifications are optional: an unset URL is a no-op.
func SendErrorNotification(errorMessage string) error {
	return send(properties.WebhookErrorNotificationUrl(), WebhookMessage{
		Embeds: []WebhookEmbed{
			{
				Title:       "🚨 Scene processing failed",
				Description: errorMessage,
				Color:       16711680, // Red color
			},
		},
	})
}

// SendSuccessNotification posts a completion report to the configured
// webhook.
func SendSuccessNotification(successMessage string) error {
	return send(properties.WebhookSuccessNotificationUrl(), WebhookMessage{
		Embeds: []WebhookEmbed{
			{
				Title:       "✅ Scene processed",
				Description: successMessage,
				Color:       65280, // Green color
			},
		},
	})
}

func send(url string, message WebhookMessage) error {
	if url == "" {
		return nil
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send webhook notification, status code: %d", resp.StatusCode)
	}

	return nil
}
