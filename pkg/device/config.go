// Package device wires a protocol session to a transport, keys and a
// framework loop.
package device

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/robotalks/cloudlink/pkg/handshake"
	"github.com/robotalks/cloudlink/pkg/protocol"
)

// Config provides options to run a device.
type Config struct {
	// File is an optional TOML file loaded by Load.
	File string
	// ServerURL selects the cloud and the transport,
	// e.g. tcp://host:5683 or udp://host:5684.
	ServerURL string
	// DeviceID is the 12-byte device id in hex. Empty uses the id
	// derived from the machine id.
	DeviceID string
	// DeviceKey and ServerKey are paths to DER or PEM key files.
	DeviceKey string
	ServerKey string

	ProductID        uint
	ProductVersion   uint
	HandshakeTimeout time.Duration
	KeepAlive        time.Duration
	AckTimeout       time.Duration
	MaxRetransmit    int
	ProtocolFlags    uint
	ReconnectDelay   time.Duration
}

// fileConfig is the TOML layout of a config file.
type fileConfig struct {
	ServerURL        string `toml:"server_url"`
	DeviceID         string `toml:"device_id"`
	DeviceKey        string `toml:"device_key"`
	ServerKey        string `toml:"server_key"`
	ProductID        uint   `toml:"product_id"`
	ProductVersion   uint   `toml:"product_version"`
	HandshakeTimeout string `toml:"handshake_timeout"`
	KeepAlive        string `toml:"keepalive"`
	AckTimeout       string `toml:"ack_timeout"`
	MaxRetransmit    int    `toml:"max_retransmit"`
	ProtocolFlags    uint   `toml:"protocol_flags"`
	ReconnectDelay   string `toml:"reconnect_delay"`
}

// DefaultReconnectDelay is the initial delay before reconnecting.
const DefaultReconnectDelay = time.Second

var defaultConfig = Config{
	ServerURL:        "tcp://localhost:5683",
	DeviceKey:        "device_key.der",
	ServerKey:        "server_public_key.der",
	ProductID:        uint(protocol.DefaultProductID),
	ProductVersion:   uint(protocol.DefaultProductFirmwareVersion),
	HandshakeTimeout: handshake.DefaultTimeout,
	KeepAlive:        protocol.DefaultKeepAlive,
	AckTimeout:       protocol.DefaultAckTimeout,
	MaxRetransmit:    protocol.DefaultMaxRetransmit,
	ReconnectDelay:   DefaultReconnectDelay,
}

func init() {
	if val := os.Getenv("CLOUDLINK_CONFIG"); val != "" {
		defaultConfig.File = val
	}
	if val := os.Getenv("CLOUDLINK_SERVER_URL"); val != "" {
		defaultConfig.ServerURL = val
	}
	if val := os.Getenv("CLOUDLINK_DEVICE_ID"); val != "" {
		defaultConfig.DeviceID = val
	}
	if val := os.Getenv("CLOUDLINK_DEVICE_KEY"); val != "" {
		defaultConfig.DeviceKey = val
	}
	if val := os.Getenv("CLOUDLINK_SERVER_KEY"); val != "" {
		defaultConfig.ServerKey = val
	}
	if val := os.Getenv("CLOUDLINK_PROTOCOL_FLAGS"); val != "" {
		if flags, err := strconv.ParseUint(val, 0, 32); err == nil {
			defaultConfig.ProtocolFlags = uint(flags)
		}
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.File, "config", defaultConfig.File, "TOML config file, overrides other flags")
	flag.StringVar(&defaultConfig.ServerURL, "server", defaultConfig.ServerURL, "Cloud URL: tcp://, udp://, ws:// or mqtt://")
	flag.StringVar(&defaultConfig.DeviceID, "device-id", defaultConfig.DeviceID, "Device ID in hex, default derived from machine id")
	flag.StringVar(&defaultConfig.DeviceKey, "device-key", defaultConfig.DeviceKey, "Device private key file")
	flag.StringVar(&defaultConfig.ServerKey, "server-key", defaultConfig.ServerKey, "Server public key file")
	flag.UintVar(&defaultConfig.ProductID, "product-id", defaultConfig.ProductID, "Product ID")
	flag.UintVar(&defaultConfig.ProductVersion, "product-version", defaultConfig.ProductVersion, "Product firmware version")
	flag.DurationVar(&defaultConfig.KeepAlive, "keepalive", defaultConfig.KeepAlive, "Idle time before a ping")
	flag.DurationVar(&defaultConfig.AckTimeout, "ack-timeout", defaultConfig.AckTimeout, "Initial acknowledgement timeout")
	flag.UintVar(&defaultConfig.ProtocolFlags, "protocol-flags", defaultConfig.ProtocolFlags, "Protocol flags: 1 require hello response, 2 device initiated describe")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadFile overrides the config with the keys defined in a TOML file.
func (c *Config) LoadFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if meta.IsDefined("server_url") {
		c.ServerURL = strings.TrimSpace(raw.ServerURL)
	}
	if meta.IsDefined("device_id") {
		c.DeviceID = strings.TrimSpace(raw.DeviceID)
	}
	if meta.IsDefined("device_key") {
		c.DeviceKey = raw.DeviceKey
	}
	if meta.IsDefined("server_key") {
		c.ServerKey = raw.ServerKey
	}
	if meta.IsDefined("product_id") {
		c.ProductID = raw.ProductID
	}
	if meta.IsDefined("product_version") {
		c.ProductVersion = raw.ProductVersion
	}
	if meta.IsDefined("max_retransmit") {
		c.MaxRetransmit = raw.MaxRetransmit
	}
	if meta.IsDefined("protocol_flags") {
		c.ProtocolFlags = raw.ProtocolFlags
	}
	durations := []struct {
		key string
		val string
		out *time.Duration
	}{
		{"handshake_timeout", raw.HandshakeTimeout, &c.HandshakeTimeout},
		{"keepalive", raw.KeepAlive, &c.KeepAlive},
		{"ack_timeout", raw.AckTimeout, &c.AckTimeout},
		{"reconnect_delay", raw.ReconnectDelay, &c.ReconnectDelay},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		if *d.out, err = time.ParseDuration(strings.TrimSpace(d.val)); err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
	}
	return nil
}

// Load loads File if set.
func (c *Config) Load() error {
	if c.File == "" {
		return nil
	}
	return c.LoadFile(c.File)
}

// MustLoadFile loads a config file and fails on error.
func (c *Config) MustLoadFile(path string) *Config {
	if err := c.LoadFile(path); err != nil {
		log.Fatalln(err)
	}
	return c
}

// ID returns the configured device id, or the one derived from the
// machine id.
func (c *Config) ID() ([]byte, error) {
	if c.DeviceID == "" {
		return MachineDeviceID()
	}
	return ParseDeviceID(c.DeviceID)
}

// LoadKeys reads the device and server keys.
func (c *Config) LoadKeys() (*handshake.KeyMaterial, error) {
	deviceKey, err := ioutil.ReadFile(c.DeviceKey)
	if err != nil {
		return nil, fmt.Errorf("read device key: %w", err)
	}
	serverKey, err := ioutil.ReadFile(c.ServerKey)
	if err != nil {
		return nil, fmt.Errorf("read server key: %w", err)
	}
	return handshake.LoadKeyMaterial(deviceKey, serverKey)
}

// Options builds protocol options from the config. keys may be nil
// when they are set later.
func (c *Config) Options(id []byte, keys *handshake.KeyMaterial) protocol.Options {
	opts := protocol.DefaultOptions()
	opts.DeviceID = id
	opts.Keys = keys
	opts.Flags = uint32(c.ProtocolFlags)
	opts.HandshakeTimeout = c.HandshakeTimeout
	opts.KeepAlive = c.KeepAlive
	opts.AckTimeout = c.AckTimeout
	opts.MaxRetransmit = c.MaxRetransmit
	return opts
}

// Product returns the configured product details.
func (c *Config) Product() protocol.ProductDetails {
	return protocol.ProductDetails{
		ProductID:      uint16(c.ProductID),
		ProductVersion: uint16(c.ProductVersion),
	}
}
