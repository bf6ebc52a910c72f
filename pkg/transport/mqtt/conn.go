package mqtt

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/cloudlink/pkg/transport"
)

// Topic suffixes.
const (
	UpTopic   = "up"
	DownTopic = "down"
	MetaTopic = "meta"
)

// Meta is the retained presence published by a connected device.
type Meta struct {
	DeviceID string `json:"device_id"`
	Online   bool   `json:"online"`
}

// topicConn exchanges packets over a pair of topics.
type topicConn struct {
	queue    *Queue
	pubTopic string
	packetCh chan []byte
	closed   chan struct{}
	once     sync.Once
}

func newTopicConn(q *Queue, pubTopic string) *topicConn {
	return &topicConn{
		queue:    q,
		pubTopic: pubTopic,
		packetCh: make(chan []byte, transport.DefaultPollerDepth),
		closed:   make(chan struct{}),
	}
}

func (c *topicConn) deliver(_ string, payload []byte) {
	select {
	case c.packetCh <- payload:
	case <-c.closed:
	default:
		glog.Warningf("mqtt %s: queue full, packet dropped", c.pubTopic)
	}
}

// ReadPacket implements PacketReader.
func (c *topicConn) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-c.packetCh:
		return pkt, nil
	case <-c.closed:
		return nil, transport.ErrClosed
	}
}

// WritePacket implements PacketWriter.
func (c *topicConn) WritePacket(pkt []byte) error {
	token := c.queue.Pub(c.pubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Unreliable implements transport.Conn. QoS 0 may drop packets.
func (c *topicConn) Unreliable() bool { return true }

func (c *topicConn) close() bool {
	var first bool
	c.once.Do(func() {
		close(c.closed)
		first = true
	})
	return first
}

// Conn is the device side of an MQTT transport.
type Conn struct {
	*topicConn
	deviceID string
	sub      *Subscription
}

// Dial connects to the broker as the device.
func Dial(brokerURL, deviceID string) (*Conn, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	metaTopic := deviceID + "/" + MetaTopic
	opts.SetBinaryWill(prefix+metaTopic, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("cloudlink:" + deviceID)
	}
	q := NewQueue(opts, prefix)
	c := &Conn{topicConn: newTopicConn(q, deviceID+"/"+UpTopic), deviceID: deviceID}
	c.sub = q.Sub(deviceID+"/"+DownTopic, c.deliver)
	q.OnConnect = func(q *Queue) {
		meta, _ := json.Marshal(&Meta{DeviceID: deviceID, Online: true})
		q.PubWith(metaTopic, meta, 1, true)
	}
	if err = q.Connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// Close clears the presence and disconnects.
func (c *Conn) Close() error {
	if !c.close() {
		return nil
	}
	c.queue.PubWith(c.deviceID+"/"+MetaTopic, nil, 1, true).Wait()
	c.sub.Close()
	return c.queue.Close()
}

// Acceptor is the cloud side: it creates one Conn per device
// seen on the up topics.
type Acceptor struct {
	Queue *Queue

	sub      *Subscription
	acceptCh chan transport.Conn
	done     chan struct{}
	conns    map[string]*cloudConn
	lock     sync.Mutex
}

// Listen connects to the broker and starts accepting devices.
func Listen(brokerURL string) (*Acceptor, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID("cloudlink:cloud")
	}
	a := &Acceptor{
		Queue:    NewQueue(opts, prefix),
		acceptCh: make(chan transport.Conn, 1),
		done:     make(chan struct{}),
		conns:    make(map[string]*cloudConn),
	}
	a.sub = a.Queue.Sub("+/"+UpTopic, a.dispatch)
	if err = a.Queue.Connect(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Acceptor) dispatch(topic string, payload []byte) {
	deviceID := strings.TrimSuffix(topic, "/"+UpTopic)
	a.lock.Lock()
	conn, exists := a.conns[deviceID]
	if !exists {
		conn = &cloudConn{topicConn: newTopicConn(a.Queue, deviceID+"/"+DownTopic), acceptor: a, deviceID: deviceID}
		a.conns[deviceID] = conn
	}
	a.lock.Unlock()
	conn.deliver(topic, payload)
	if !exists {
		glog.V(2).Infof("mqtt device %s", deviceID)
		select {
		case a.acceptCh <- conn:
		case <-a.done:
		}
	}
}

// Accept waits for a new device.
func (a *Acceptor) Accept() (transport.Conn, error) {
	select {
	case conn := <-a.acceptCh:
		return conn, nil
	case <-a.done:
		return nil, transport.ErrClosed
	}
}

// Close stops accepting and closes all device conns.
func (a *Acceptor) Close() error {
	a.sub.Close()
	close(a.done)
	a.lock.Lock()
	for id, conn := range a.conns {
		conn.close()
		delete(a.conns, id)
	}
	a.lock.Unlock()
	return a.Queue.Close()
}

type cloudConn struct {
	*topicConn
	acceptor *Acceptor
	deviceID string
}

// Close forgets the device so its next packet starts a new Conn.
func (c *cloudConn) Close() error {
	if c.close() {
		c.acceptor.lock.Lock()
		if c.acceptor.conns[c.deviceID] == c {
			delete(c.acceptor.conns, c.deviceID)
		}
		c.acceptor.lock.Unlock()
	}
	return nil
}
