package whatsapp

import (
	"encoding/json"
	"fmt"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/normalize"
)

// Webhook payload shapes (subset of the Cloud API notification format).

type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Contacts []contact        `json:"contacts,omitempty"`
				Messages []webhookMessage `json:"messages,omitempty"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type webhookMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Image *struct {
		ID      string `json:"id"`
		Caption string `json:"caption,omitempty"`
	} `json:"image,omitempty"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Name      string  `json:"name,omitempty"`
		Address   string  `json:"address,omitempty"`
	} `json:"location,omitempty"`
	Button *struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button,omitempty"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply,omitempty"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
}

// ParseWebhook decodes a webhook notification into inbound events.
// Unsupported message kinds are skipped, not errors.
func ParseWebhook(body []byte) ([]normalize.InboundEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	var events []normalize.InboundEvent
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, msg := range change.Value.Messages {
				ev, ok := eventFromMessage(msg)
				if !ok {
					continue
				}
				ev.SenderName = names[msg.From]
				events = append(events, ev)
			}
		}
	}
	return events, nil
}

func eventFromMessage(msg webhookMessage) (normalize.InboundEvent, bool) {
	ev := normalize.InboundEvent{From: msg.From}
	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return ev, false
		}
		ev.Type = normalize.EventText
		ev.Text = msg.Text.Body
	case "image":
		if msg.Image == nil {
			return ev, false
		}
		ev.Type = normalize.EventPhoto
		ev.PhotoRef = msg.Image.ID
		ev.Text = msg.Image.Caption
	case "location":
		if msg.Location == nil {
			return ev, false
		}
		ev.Type = normalize.EventLocation
		ev.Lat = msg.Location.Latitude
		ev.Lng = msg.Location.Longitude
		ev.LocationName = msg.Location.Name
		ev.LocationAddr = msg.Location.Address
	case "button":
		if msg.Button == nil {
			return ev, false
		}
		ev.Type = normalize.EventButton
		ev.ButtonPayload = msg.Button.Payload
		ev.Text = msg.Button.Text
	case "interactive":
		if msg.Interactive == nil {
			return ev, false
		}
		ev.Type = normalize.EventInteractive
		switch {
		case msg.Interactive.ButtonReply != nil:
			ev.ButtonPayload = msg.Interactive.ButtonReply.ID
			ev.Text = msg.Interactive.ButtonReply.Title
		case msg.Interactive.ListReply != nil:
			ev.ButtonPayload = msg.Interactive.ListReply.ID
			ev.Text = msg.Interactive.ListReply.Title
		default:
			return ev, false
		}
	default:
		return ev, false
	}
	return ev, true
}
