package notifications

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"carrent/internal/domain/rentnotifications"
	"carrent/internal/realtime"

	"go.uber.org/zap"
)

// ErrDelivery wraps any failure to hand a committed notification to the
// realtime hub or the push service.
var ErrDelivery = errors.New("notification delivery failed")

const (
	EventReceiveRentRequest  = "ReceiveRentRequest"
	EventReceiveRentResponse = "ReceiveRentResponse"
	EventUnreadCount         = "UnreadNotificationsCount"
)

type Broadcaster interface {
	SendToUser(userID int64, ev realtime.Event) int
}

type TokenStore interface {
	GetTokensByUserIDs(ctx context.Context, userIDs []int64) (map[int64][]string, error)
}

type Store interface {
	UnreadCount(ctx context.Context, userID int64) (int, error)
	Undelivered(ctx context.Context, limit int) ([]rentnotifications.Notification, error)
	MarkDelivered(ctx context.Context, id int64) error
}

// Dispatcher delivers rent notifications over the notifications hub and Expo
// push, and records the delivery.
type Dispatcher struct {
	hub    Broadcaster
	push   PushSender
	tokens TokenStore
	store  Store
	logger *zap.SugaredLogger
}

func NewDispatcher(hub Broadcaster, push PushSender, tokens TokenStore, store Store, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{hub: hub, push: push, tokens: tokens, store: store, logger: logger}
}

func eventFor(t rentnotifications.Type) string {
	if t == rentnotifications.TypeRentRequest {
		return EventReceiveRentRequest
	}
	return EventReceiveRentResponse
}

func pushTitle(t rentnotifications.Type) string {
	switch t {
	case rentnotifications.TypeRentRequest:
		return "New rent request"
	case rentnotifications.TypeRentApproved:
		return "Rent request approved"
	case rentnotifications.TypeRentRejected:
		return "Rent request rejected"
	case rentnotifications.TypeRentCancelled:
		return "Booking cancelled"
	default:
		return "Booking update"
	}
}

// Deliver sends n to its recipient. A recipient who is offline and has no
// push token still counts as delivered; the row is in their list.
func (d *Dispatcher) Deliver(ctx context.Context, n *rentnotifications.Notification) error {
	d.hub.SendToUser(n.RecipientID, realtime.Event{Type: eventFor(n.Type), Payload: n})

	var errs []error
	if err := d.PushUnreadCount(ctx, n.RecipientID); err != nil {
		errs = append(errs, err)
	}
	if err := d.sendPush(ctx, n); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrDelivery, errors.Join(errs...))
	}

	if err := d.store.MarkDelivered(ctx, n.ID); err != nil {
		return fmt.Errorf("%w: mark delivered: %w", ErrDelivery, err)
	}
	return nil
}

func (d *Dispatcher) sendPush(ctx context.Context, n *rentnotifications.Notification) error {
	if d.push == nil {
		return nil
	}
	byUser, err := d.tokens.GetTokensByUserIDs(ctx, []int64{n.RecipientID})
	if err != nil {
		return fmt.Errorf("push tokens: %w", err)
	}
	tokens := byUser[n.RecipientID]
	if len(tokens) == 0 {
		return nil
	}

	data := map[string]string{
		"type":            "rent",
		"event":           string(n.Type),
		"notification_id": strconv.FormatInt(n.ID, 10),
		"screen":          "notifications",
	}
	if n.BookingID != nil {
		data["booking_id"] = strconv.FormatInt(*n.BookingID, 10)
	}

	if _, err := d.push.Publish(ctx, pushMessages(tokens, pushTitle(n.Type), n.Message, data)); err != nil {
		return fmt.Errorf("expo publish: %w", err)
	}
	return nil
}

// PushUnreadCount sends the user's current unread count to their connections.
func (d *Dispatcher) PushUnreadCount(ctx context.Context, userID int64) error {
	count, err := d.store.UnreadCount(ctx, userID)
	if err != nil {
		return fmt.Errorf("unread count: %w", err)
	}
	d.hub.SendToUser(userID, realtime.Event{Type: EventUnreadCount, Payload: count})
	return nil
}

// Redeliver retries up to limit undelivered notifications, oldest first, and
// returns how many went through.
func (d *Dispatcher) Redeliver(ctx context.Context, limit int) (int, error) {
	pending, err := d.store.Undelivered(ctx, limit)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for i := range pending {
		if err := d.Deliver(ctx, &pending[i]); err != nil {
			d.logger.Warnw("redelivery failed", "notification_id", pending[i].ID, "error", err)
			continue
		}
		delivered++
	}
	return delivered, nil
}

// PushChatMessage notifies an offline user of a new chat message.
func (d *Dispatcher) PushChatMessage(ctx context.Context, toUserID, fromUserID int64, fromName, preview string) error {
	if d.push == nil {
		return nil
	}
	byUser, err := d.tokens.GetTokensByUserIDs(ctx, []int64{toUserID})
	if err != nil {
		return err
	}
	tokens := byUser[toUserID]
	if len(tokens) == 0 {
		return nil
	}
	data := map[string]string{
		"type":         "chat",
		"from_user_id": strconv.FormatInt(fromUserID, 10),
		"screen":       "chat/" + strconv.FormatInt(fromUserID, 10),
	}
	_, err = d.push.Publish(ctx, pushMessages(tokens, fromName, preview, data))
	return err
}

// Connected sends the unread count to a new notifications connection.
func (d *Dispatcher) Connected(c *realtime.Client, first bool) {
	ctx, cancel := context.WithTimeout(context.Background(), rentnotifications.QueryTimeoutDuration)
	defer cancel()
	d.sendCount(ctx, c)
}

func (d *Dispatcher) Disconnected(c *realtime.Client, last bool) {}

func (d *Dispatcher) Received(c *realtime.Client, in realtime.Inbound) {
	if in.Type != "GetUnreadCount" {
		c.Send(realtime.Event{Type: "Error", Payload: "unknown event " + in.Type})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), rentnotifications.QueryTimeoutDuration)
	defer cancel()
	d.sendCount(ctx, c)
}

func (d *Dispatcher) sendCount(ctx context.Context, c *realtime.Client) {
	count, err := d.store.UnreadCount(ctx, c.UserID)
	if err != nil {
		d.logger.Warnw("unread count", "user_id", c.UserID, "error", err)
		return
	}
	c.Send(realtime.Event{Type: EventUnreadCount, Payload: count})
}
