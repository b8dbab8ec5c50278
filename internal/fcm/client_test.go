package fcm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	data := map[string]string{"type": "connection_request", "connection_id": "abc"}
	msg := buildMessage("device-1", "New connection request", "Ada wants to connect with you", data)

	assert.Equal(t, "device-1", msg.Token)
	assert.Equal(t, "New connection request", msg.Notification.Title)
	assert.Equal(t, data, msg.Data)

	require.NotNil(t, msg.Android)
	assert.Equal(t, "high", msg.Android.Priority)
	assert.Equal(t, "connection_request", msg.Android.CollapseKey)
	assert.Equal(t, androidChannel, msg.Android.Notification.ChannelID)
	require.NotNil(t, msg.Android.TTL)
	assert.Equal(t, messageTTL, *msg.Android.TTL)

	require.NotNil(t, msg.APNS)
	assert.Equal(t, "default", msg.APNS.Payload.Aps.Sound)
	assert.Equal(t, "connection_request", msg.APNS.Payload.Aps.ThreadID)
}

func TestBuildMessageWithoutType(t *testing.T) {
	msg := buildMessage("device-1", "Hello", "", nil)
	assert.Empty(t, msg.Android.CollapseKey)
}
