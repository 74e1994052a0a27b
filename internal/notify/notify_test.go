package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Publisher = (*NATSPublisher)(nil)
	_ Publisher = NoopPublisher{}
)

func TestNewMessage(t *testing.T) {
	s := Summary{
		RunID:      "0b6f",
		Site:       "Example",
		Outcome:    "success",
		Start:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		DurationMS: 42,
		Pages:      3,
	}
	msg, err := NewMessage("sitegen.builds", s)
	require.NoError(t, err)

	assert.Equal(t, "sitegen.builds", msg.Subject)
	assert.Equal(t, "0b6f", msg.Header.Get("Sitegen-Run-Id"))
	assert.Equal(t, "success", msg.Header.Get("Sitegen-Outcome"))

	var decoded Summary
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, s, decoded)
	assert.NotContains(t, string(msg.Data), "revision", "empty fields are omitted")
}

func TestNewNATSPublisher_Errors(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:4222", "")
	require.Error(t, err)

	_, err = NewNATSPublisher("nats://127.0.0.1:1", "sitegen.builds")
	require.Error(t, err)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	require.NoError(t, p.Publish(t.Context(), Summary{}))
	p.Close()
}
