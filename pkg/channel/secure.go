package channel

import (
	"context"
	"errors"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/cloudlink/pkg/coap"
	"github.com/robotalks/cloudlink/pkg/handshake"
	"github.com/robotalks/cloudlink/pkg/secure"
)

// TagSize is the size of the truncated HMAC appended to every packet.
const TagSize = 8

var (
	errBadTag   = errors.New("bad tag")
	errTooShort = errors.New("packet too short")
)

// Role selects which MAC key a side sends with.
type Role int

// Roles.
const (
	DeviceRole Role = iota
	CloudRole
)

// PacketConn is the packet connection under a Secure channel.
type PacketConn interface {
	TryReadPacket() ([]byte, bool, error)
	ReadPacketContext(context.Context) ([]byte, error)
	WritePacket([]byte) error
	Unreliable() bool
	Close() error
}

// Secure encrypts messages with AES-128-CBC and authenticates them with
// a truncated HMAC-SHA1 keyed per direction.
//
// On reliable transports the IV chains: the first ciphertext block of a
// packet becomes the IV of the next one in the same direction. Unreliable
// transports may lose packets, so each packet carries a random IV instead.
type Secure struct {
	MTU int

	conn    PacketConn
	key     []byte
	sendIV  []byte
	recvIV  []byte
	sendMAC []byte
	recvMAC []byte
}

// NewSecure creates a Secure channel from session keys.
func NewSecure(conn PacketConn, keys *handshake.SessionKeys, role Role) *Secure {
	c := &Secure{
		MTU:    DefaultMTU,
		conn:   conn,
		key:    append([]byte(nil), keys.Key...),
		sendIV: append([]byte(nil), keys.SendIV...),
		recvIV: append([]byte(nil), keys.ReceiveIV...),
	}
	deviceMAC, cloudMAC := append([]byte(nil), keys.DeviceMAC...), append([]byte(nil), keys.CloudMAC...)
	if role == DeviceRole {
		c.sendMAC, c.recvMAC = deviceMAC, cloudMAC
	} else {
		c.sendMAC, c.recvMAC = cloudMAC, deviceMAC
	}
	return c
}

// Create implements Channel.
func (c *Secure) Create(msg *coap.Message, size int) error {
	return create(msg, size, c.MTU)
}

// Response implements Channel.
func (c *Secure) Response(original, out *coap.Message, minSize int) error {
	return create(out, minSize, c.MTU)
}

// IsUnreliable implements Channel.
func (c *Secure) IsUnreliable() bool {
	return c.conn.Unreliable()
}

// Send implements Channel.
func (c *Secure) Send(msg *coap.Message) error {
	if msg.Len() > c.MTU {
		return ErrTooLarge
	}
	pkt, err := c.seal(msg.Bytes())
	if err != nil {
		return err
	}
	glog.V(2).Infof("SND %d bytes", msg.Len())
	return c.conn.WritePacket(pkt)
}

// Receive implements Channel. Packets failing authentication or
// decryption are dropped.
func (c *Secure) Receive(msg *coap.Message) (bool, error) {
	pkt, ok, err := c.conn.TryReadPacket()
	if err != nil || !ok {
		return false, err
	}
	return c.accept(pkt, msg), nil
}

// ReceiveContext blocks until a message is received, the connection
// fails or ctx is done.
func (c *Secure) ReceiveContext(ctx context.Context, msg *coap.Message) error {
	for {
		pkt, err := c.conn.ReadPacketContext(ctx)
		if err != nil {
			return err
		}
		if c.accept(pkt, msg) {
			return nil
		}
	}
}

func (c *Secure) accept(pkt []byte, msg *coap.Message) bool {
	plaintext, err := c.open(pkt)
	if err != nil {
		glog.Warningf("packet dropped: %v", err)
		return false
	}
	msg.Reset(c.MTU)
	if err = msg.SetBytes(plaintext); err != nil || !msg.DecodeID() {
		glog.Warningf("message dropped: %d bytes", len(plaintext))
		return false
	}
	glog.V(2).Infof("RCV %d bytes", msg.Len())
	return true
}

// Close closes the underlying connection.
func (c *Secure) Close() error {
	return c.conn.Close()
}

func (c *Secure) seal(plaintext []byte) ([]byte, error) {
	iv := c.sendIV
	var pkt []byte
	if c.conn.Unreliable() {
		iv = make([]byte, secure.BlockSize)
		if _, err := io.ReadFull(secure.Rand, iv); err != nil {
			return nil, err
		}
		pkt = append(pkt, iv...)
	}
	ciphertext, err := secure.EncryptCBC(c.key, iv, plaintext)
	if err != nil {
		return nil, err
	}
	if !c.conn.Unreliable() {
		copy(c.sendIV, ciphertext[:secure.BlockSize])
	}
	pkt = append(pkt, ciphertext...)
	return append(pkt, secure.MAC(c.sendMAC, pkt)[:TagSize]...), nil
}

func (c *Secure) open(pkt []byte) ([]byte, error) {
	if len(pkt) < secure.BlockSize+TagSize {
		return nil, errTooShort
	}
	body, tag := pkt[:len(pkt)-TagSize], pkt[len(pkt)-TagSize:]
	if !secure.MACEqual(c.recvMAC, body, tag) {
		return nil, errBadTag
	}
	iv := c.recvIV
	if c.conn.Unreliable() {
		if len(body) < 2*secure.BlockSize {
			return nil, errTooShort
		}
		iv, body = body[:secure.BlockSize], body[secure.BlockSize:]
	}
	plaintext, err := secure.DecryptCBC(c.key, iv, body)
	if err != nil {
		return nil, err
	}
	if !c.conn.Unreliable() {
		copy(c.recvIV, body[:secure.BlockSize])
	}
	return plaintext, nil
}
