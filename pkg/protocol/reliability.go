package protocol

import (
	"bytes"
	"container/list"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cloudlink/pkg/coap"
)

// Reliability defaults.
const (
	DefaultAckTimeout    = 4 * time.Second
	DefaultMaxRetransmit = 4
)

// CompletionFunc is called once when a confirmable message completes.
// err is nil on ACK, ErrRejected on RESET, ErrTimeout when no reply
// arrived and ErrCancelled when the pending set is cleared.
type CompletionFunc func(err error)

type outstanding struct {
	id       uint16
	token    []byte
	msg      *coap.Message
	deadline time.Time
	timeout  time.Duration
	retries  int
	done     CompletionFunc
	elem     *list.Element
}

func (o *outstanding) complete(err error) {
	if o.done != nil {
		o.done(err)
	}
}

// reliability is the outstanding set of confirmable messages sent over
// an unreliable channel. Expired messages are retransmitted with a
// doubling timeout.
type reliability struct {
	AckTimeout    time.Duration
	MaxRetransmit int

	pending list.List
	byID    map[uint16]*outstanding
}

func newReliability(ackTimeout time.Duration, maxRetransmit int) *reliability {
	return &reliability{
		AckTimeout:    ackTimeout,
		MaxRetransmit: maxRetransmit,
		byID:          make(map[uint16]*outstanding),
	}
}

// track adds a sent confirmable message, retaining a copy of it.
func (r *reliability) track(msg *coap.Message, token []byte, now time.Time, done CompletionFunc) {
	o := &outstanding{
		id:      msg.ID(),
		token:   append([]byte(nil), token...),
		msg:     msg.Clone(),
		timeout: r.AckTimeout,
		done:    done,
	}
	o.deadline = now.Add(o.timeout)
	if prev := r.byID[o.id]; prev != nil {
		r.remove(prev)
		prev.complete(ErrCancelled)
	}
	o.elem = r.pending.PushBack(o)
	r.byID[o.id] = o
}

func (r *reliability) remove(o *outstanding) {
	r.pending.Remove(o.elem)
	delete(r.byID, o.id)
}

// reply completes the message with id. Unknown ids, and replies whose
// token doesn't match the one sent, are ignored.
func (r *reliability) reply(id uint16, token []byte, err error) bool {
	o := r.byID[id]
	if o == nil {
		return false
	}
	if len(token) > 0 && len(o.token) > 0 && !bytes.Equal(token, o.token) {
		return false
	}
	r.remove(o)
	o.complete(err)
	return true
}

// has reports whether id is outstanding.
func (r *reliability) has(id uint16) bool {
	return r.byID[id] != nil
}

// len returns the number of outstanding messages.
func (r *reliability) len() int {
	return r.pending.Len()
}

// poll retransmits expired messages and fails those out of retries.
func (r *reliability) poll(now time.Time, send func(*coap.Message) error) error {
	for elem := r.pending.Front(); elem != nil; {
		o := elem.Value.(*outstanding)
		elem = elem.Next()
		if now.Before(o.deadline) {
			continue
		}
		if o.retries >= r.MaxRetransmit {
			r.remove(o)
			o.complete(ErrTimeout)
			return ErrRetransmitExhausted
		}
		o.retries++
		o.timeout *= 2
		o.deadline = now.Add(o.timeout)
		glog.Warningf("retransmit %d (%d/%d)", o.id, o.retries, r.MaxRetransmit)
		if err := send(o.msg); err != nil {
			return err
		}
	}
	return nil
}

// clear completes every outstanding message with err.
func (r *reliability) clear(err error) {
	for r.pending.Len() > 0 {
		o := r.pending.Front().Value.(*outstanding)
		r.remove(o)
		o.complete(err)
	}
}
