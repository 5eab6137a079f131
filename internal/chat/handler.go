package chat

import (
	"context"
	"encoding/json"
	"time"

	"carrent/internal/realtime"
)

const frameTimeout = 5 * time.Second

type peerPayload struct {
	ToUserID  int64 `json:"to_user_id"`
	PartnerID int64 `json:"partner_id"`
}

type editPayload struct {
	MessageID int64  `json:"message_id"`
	Message   string `json:"message"`
}

// Connected announces a user's first connection to everyone else and sends
// the online list to the new connection.
func (s *Service) Connected(c *realtime.Client, first bool) {
	if first {
		s.hub.SendToOthers(c.UserID, realtime.Event{Type: EventUserConnected, Payload: map[string]int64{"user_id": c.UserID}})
	}
	c.Send(realtime.Event{Type: EventOnlineUsers, Payload: s.hub.OnlineUsers()})
}

func (s *Service) Disconnected(c *realtime.Client, last bool) {
	if last {
		s.hub.SendToOthers(c.UserID, realtime.Event{Type: EventUserDisconnected, Payload: map[string]int64{"user_id": c.UserID}})
	}
}

// Received handles frames sent by chat clients.
func (s *Service) Received(c *realtime.Client, in realtime.Inbound) {
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	if err := s.dispatch(ctx, c, in); err != nil {
		c.Send(realtime.Event{Type: EventError, Payload: map[string]string{"event": in.Type, "message": err.Error()}})
	}
}

func (s *Service) dispatch(ctx context.Context, c *realtime.Client, in realtime.Inbound) error {
	switch in.Type {
	case "SendMessage":
		var out Outgoing
		if err := json.Unmarshal(in.Payload, &out); err != nil {
			return err
		}
		_, err := s.Send(ctx, c.UserID, out)
		return err
	case "EditMessage":
		var p editPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return err
		}
		_, err := s.Edit(ctx, c.UserID, p.MessageID, p.Message)
		return err
	case "DeleteMessage":
		var p editPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return err
		}
		return s.Delete(ctx, c.UserID, p.MessageID)
	case "Typing", "StopTyping":
		var p peerPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return err
		}
		s.Typing(c.UserID, p.ToUserID, in.Type == "Typing")
		return nil
	case "MarkRead":
		var p peerPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return err
		}
		_, err := s.MarkRead(ctx, c.UserID, p.PartnerID)
		return err
	case "GetOnlineUsers":
		c.Send(realtime.Event{Type: EventOnlineUsers, Payload: s.hub.OnlineUsers()})
		return nil
	case "IsUserOnline":
		var p peerPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return err
		}
		c.Send(realtime.Event{Type: "UserOnlineStatus", Payload: map[string]any{
			"user_id": p.PartnerID, "is_online": s.hub.IsOnline(p.PartnerID),
		}})
		return nil
	default:
		return errUnknownEvent(in.Type)
	}
}

type errUnknownEvent string

func (e errUnknownEvent) Error() string { return "unknown event " + string(e) }
