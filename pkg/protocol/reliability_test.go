package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cloudlink/pkg/coap"
)

func confirmable(t *testing.T, id uint16) *coap.Message {
	msg := coap.NewMessage(16)
	require.NoError(t, coap.EncodePing(msg, id))
	return msg
}

func TestReliabilityReply(t *testing.T) {
	r := newReliability(time.Second, 2)
	now := time.Unix(100, 0)
	var results []error
	done := func(err error) { results = append(results, err) }

	r.track(confirmable(t, 1), []byte{7}, now, done)
	r.track(confirmable(t, 2), nil, now, done)
	require.Equal(t, 2, r.len())
	require.True(t, r.has(1))

	require.False(t, r.reply(3, nil, nil))
	require.False(t, r.reply(1, []byte{8}, nil))
	require.True(t, r.reply(1, []byte{7}, nil))
	require.False(t, r.reply(1, nil, nil))
	require.True(t, r.reply(2, nil, ErrRejected))
	require.Equal(t, []error{nil, ErrRejected}, results)
	require.Zero(t, r.len())
}

func TestReliabilityRetransmit(t *testing.T) {
	r := newReliability(time.Second, 2)
	now := time.Unix(100, 0)
	var result error
	r.track(confirmable(t, 9), nil, now, func(err error) { result = err })

	var resent []uint16
	send := func(msg *coap.Message) error {
		resent = append(resent, msg.ID())
		return nil
	}
	require.NoError(t, r.poll(now.Add(999*time.Millisecond), send))
	require.Empty(t, resent)
	require.NoError(t, r.poll(now.Add(time.Second), send))
	require.Equal(t, []uint16{9}, resent)
	// the timeout doubles
	require.NoError(t, r.poll(now.Add(2*time.Second), send))
	require.Len(t, resent, 1)
	require.NoError(t, r.poll(now.Add(3*time.Second), send))
	require.Len(t, resent, 2)
	require.Equal(t, ErrRetransmitExhausted, r.poll(now.Add(7*time.Second), send))
	require.Equal(t, ErrTimeout, result)
	require.Zero(t, r.len())
}

func TestReliabilityClear(t *testing.T) {
	r := newReliability(time.Second, 2)
	var result error
	r.track(confirmable(t, 1), nil, time.Unix(0, 0), func(err error) { result = err })
	r.clear(ErrCancelled)
	require.Equal(t, ErrCancelled, result)
	require.Zero(t, r.len())
}

func TestRetransmitUntilExhausted(t *testing.T) {
	h := newHarness(t, true, quietOptions(), Callbacks{}, nil)
	var result error
	require.NoError(t, h.SendEvent("a", []byte("x"), DefaultEventTTL, PublicEvent, EmptyFlags, func(err error) { result = err }))
	original := h.ch.Take()[0].Bytes()

	for i := 0; i < DefaultMaxRetransmit; i++ {
		h.clock.Advance(time.Hour)
		require.True(t, h.EventLoop())
		sent := h.ch.Take()
		require.Len(t, sent, 1)
		require.Equal(t, original, sent[0].Bytes())
	}
	h.clock.Advance(time.Hour)
	require.False(t, h.EventLoop())
	require.Equal(t, ErrRetransmitExhausted, h.Err())
	require.Equal(t, ErrTimeout, result)
	require.Equal(t, Uninitialized, h.State())
}

func TestLateAckIgnored(t *testing.T) {
	h := newHarness(t, true, quietOptions(), Callbacks{}, nil)
	require.NoError(t, h.SendEvent("a", nil, DefaultEventTTL, PublicEvent, EmptyFlags, nil))
	id := h.ch.Take()[0].ID()
	for i := 0; i < 2; i++ {
		h.inject(t, coap.Header{Type: coap.Acknowledgement, ID: id}, nil)
		require.True(t, h.EventLoop())
		require.Zero(t, h.Outstanding())
	}
	h.inject(t, coap.Header{Type: coap.Acknowledgement, ID: id + 100}, nil)
	require.True(t, h.EventLoop())
	require.Empty(t, h.ch.Sent())
}

func TestReliableChannelNeverRetransmits(t *testing.T) {
	h := newHarness(t, false, quietOptions(), Callbacks{}, nil)
	require.NoError(t, h.SendEvent("a", nil, DefaultEventTTL, PublicEvent, EmptyFlags, nil))
	require.Len(t, h.ch.Take(), 1)
	require.Zero(t, h.Outstanding())
	h.clock.Advance(time.Hour)
	require.True(t, h.EventLoop())
	require.Empty(t, h.ch.Sent())
}
