package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/credguard"
)

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestNotifyChallengePublishes(t *testing.T) {
	ps := newPubSub(t)
	ctx := context.Background()

	messages, err := ps.Subscribe(ctx, DefaultChallengeTopic)
	require.NoError(t, err)

	p := NewPublisher(ps)
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err = p.NotifyChallenge(ctx, credguard.Challenge{
		Flow:      credguard.ChallengeForgotPassword,
		IP:        "9.9.9.9",
		Username:  "carol",
		Code:      "AB12CD",
		ExpiresIn: 5 * time.Minute,
		IssuedAt:  issued,
	})
	require.NoError(t, err)

	msg := receive(t, messages)
	assert.Equal(t, "forgot_password", msg.Metadata.Get("flow"))

	var got ChallengeMessage
	require.NoError(t, json.Unmarshal(msg.Payload, &got))
	assert.Equal(t, ChallengeMessage{
		Flow:      "forgot_password",
		IP:        "9.9.9.9",
		Username:  "carol",
		Code:      "AB12CD",
		ExpiresIn: 300,
		IssuedAt:  issued,
	}, got)
}

func TestEmitPublishesAudit(t *testing.T) {
	ps := newPubSub(t)
	ctx := context.Background()

	messages, err := ps.Subscribe(ctx, "custom.audit")
	require.NoError(t, err)

	p := NewPublisher(ps, WithAuditTopic("custom.audit"))
	p.Emit(ctx, credguard.AuditEvent{
		EventType: "login_failure",
		Flow:      "login",
		Username:  "bob",
		IP:        "5.6.7.8",
		Error:     "invalid_credentials",
	})

	msg := receive(t, messages)
	assert.Equal(t, "login_failure", msg.Metadata.Get("event_type"))
	assert.Equal(t, "login", msg.Metadata.Get("flow"))

	var got credguard.AuditEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &got))
	assert.Equal(t, "bob", got.Username)
	assert.False(t, got.Success)
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error { return errors.New("broker down") }
func (failingPublisher) Close() error                              { return nil }

func TestNotifyChallengeSurfacesPublishError(t *testing.T) {
	p := NewPublisher(failingPublisher{}, WithChallengeTopic("x"))
	err := p.NotifyChallenge(context.Background(), credguard.Challenge{Flow: credguard.ChallengeRegister})
	assert.ErrorContains(t, err, "broker down")

	// Emit has no error path and must not panic.
	p.Emit(context.Background(), credguard.AuditEvent{EventType: "x"})
}
