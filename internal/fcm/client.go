package fcm

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/jobizaaa/network/internal/domain"
)

const (
	androidChannel = "network_activity"
	messageTTL     = 24 * time.Hour
)

// Client sends push notifications to member devices through Firebase Cloud Messaging.
type Client struct {
	msgClient *messaging.Client
	logger    *zap.Logger
}

// NewClient uses credentialsFile when set and Application Default Credentials otherwise.
func NewClient(ctx context.Context, logger *zap.Logger, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &Client{
		msgClient: msgClient,
		logger:    logger,
	}, nil
}

// Send pushes one notification to a device. A token FCM no longer recognises
// yields domain.ErrDeviceUnregistered.
func (c *Client) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	if token == "" {
		return nil
	}

	_, err := c.msgClient.Send(ctx, buildMessage(token, title, body, data))
	switch {
	case err == nil:
		return nil
	case messaging.IsUnregistered(err):
		c.logger.Debug("fcm token unregistered", zap.Error(err))
		return fmt.Errorf("fcm send: %w", domain.ErrDeviceUnregistered)
	default:
		c.logger.Error("failed to send FCM message", zap.String("type", data["type"]), zap.Error(err))
		return fmt.Errorf("fcm send: %w", err)
	}
}

// buildMessage collapses notifications of the same type so a burst of requests
// shows as one entry on the device.
func buildMessage(token, title, body string, data map[string]string) *messaging.Message {
	ttl := messageTTL
	kind := data["type"]

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			TTL:      &ttl,
			Notification: &messaging.AndroidNotification{
				ChannelID: androidChannel,
				Tag:       kind,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:    "default",
					ThreadID: kind,
				},
			},
		},
	}
	if kind != "" {
		msg.Android.CollapseKey = kind
	}
	return msg
}
