package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/cloudlink/pkg/device"
	"github.com/robotalks/cloudlink/pkg/protocol"
)

// Shell provides ishell backed interactive device shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	Timeout     time.Duration

	Shell  *ishell.Shell
	Config *device.Config
	Env    *device.Env

	cancel func()
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[offline] > "
	defaultTimeout    = 10 * time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&StatusCmd,
		&PublishCmd,
		&SubscribeCmd,
		&UnsubscribeCmd,
		&DescribeCmd,
		&TimeCmd,
		&PingCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *device.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     defaultTimeout,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeStarted wraps command func requiring a running device.
func MustBeStarted(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Env == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// SetTime implements protocol.TimeSetter.
func (s *Shell) SetTime(t time.Time) {
	s.Shell.Printf("time: %s\n", t.UTC().Format(time.RFC3339))
}

// Signal implements protocol.Signaler.
func (s *Shell) Signal(on bool) {
	s.Shell.Printf("signal: %v\n", on)
}

// EventReceived prints a received event.
func (s *Shell) EventReceived(name string, data []byte) {
	if s.OutputJSON {
		out, _ := json.Marshal(map[string]string{"name": name, "data": string(data)})
		s.Shell.Println(string(out))
		return
	}
	s.Shell.Printf("event %s: %s\n", name, data)
}

// Start creates the device env and runs its loop.
func (s *Shell) Start() error {
	if s.Env != nil {
		return s.Env.Connect(context.Background())
	}
	env, err := s.Config.NewEnv()
	if err != nil {
		return err
	}
	env.SetCallbacks(protocol.Callbacks{TimeSetter: s, Signaler: s})
	ctx, cancel := context.WithCancel(context.Background())
	s.Env, s.cancel = env, cancel
	go env.Run(ctx)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", s.Config.ServerURL))
	return nil
}

// Stop disconnects and stops the device loop.
func (s *Shell) Stop() {
	if s.Env == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	s.Env.Disconnect(ctx)
	s.cancel()
	s.Env = nil
	s.Shell.SetPrompt(unconnectedPrompt)
}

// Do runs fn in the device loop with the shell timeout.
func (s *Shell) Do(fn func(*protocol.Protocol) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	return s.Env.Do(ctx, fn)
}

// DoCommand runs fn in the device loop and prints the outcome.
func DoCommand(c *ishell.Context, fn func(*protocol.Protocol) error) error {
	if err := ShellFrom(c).Do(fn); err != nil {
		c.Err(err)
		return err
	}
	c.Println("OK")
	return nil
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.ServerURL)
		}
		if err := s.Start(); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.ServerURL, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Status is a snapshot of the session.
type Status struct {
	State       string         `json:"state"`
	Outstanding int            `json:"outstanding"`
	Error       string         `json:"error,omitempty"`
	Stats       protocol.Stats `json:"stats"`
}

func (st *Status) String() string {
	str := fmt.Sprintf("%s outstanding=%d connects=%d sent=%d received=%d dropped=%d duplicates=%d events=%d/%d",
		st.State, st.Outstanding, st.Stats.Connects, st.Stats.Sent, st.Stats.Received,
		st.Stats.Dropped, st.Stats.Duplicates, st.Stats.EventsSent, st.Stats.EventsReceived)
	if st.Error != "" {
		str += " error=" + st.Error
	}
	return str
}

func statusOf(p *protocol.Protocol) *Status {
	st := &Status{State: p.State().String(), Outstanding: p.Outstanding(), Stats: p.Stats()}
	if err := p.Err(); err != nil {
		st.Error = err.Error()
	}
	return st
}

// parsePublish parses NAME [DATA] [public] [noack].
func parsePublish(args []string) (name string, data []byte, typ protocol.EventType, flags protocol.EventFlags, err error) {
	if len(args) < 1 {
		err = fmt.Errorf("NAME required")
		return
	}
	name, typ, flags = args[0], protocol.PrivateEvent, protocol.EmptyFlags
	for _, arg := range args[1:] {
		switch arg {
		case "public":
			typ = protocol.PublicEvent
		case "noack":
			flags |= protocol.NoAck
		default:
			if data != nil {
				err = fmt.Errorf("unexpected argument %q", arg)
				return
			}
			data = []byte(arg)
		}
	}
	return
}

// parseScope parses an optional subscription scope.
func parseScope(args []string) (protocol.SubscriptionScope, error) {
	if len(args) == 0 {
		return protocol.ScopeFirehose, nil
	}
	switch strings.ToLower(args[0]) {
	case "all", "firehose":
		return protocol.ScopeFirehose, nil
	case "mine", "u":
		return protocol.ScopeMyDevices, nil
	}
	return 0, fmt.Errorf("invalid scope %q", args[0])
}

// parseDescribeFlags parses optional describe flags.
func parseDescribeFlags(args []string) (byte, error) {
	if len(args) == 0 {
		return protocol.DescribeDefault, nil
	}
	v, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid FLAGS %q", args[0])
	}
	return byte(v), nil
}

var (
	// ConnectCmd connects the device.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Start(); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects the device.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Stop()
		},
	}

	// StatusCmd prints the session status.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: MustBeStarted(func(c *ishell.Context) {
			s := ShellFrom(c)
			var st *Status
			if err := s.Do(func(p *protocol.Protocol) error {
				st = statusOf(p)
				return nil
			}); err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				out, err := json.Marshal(st)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			c.Println(st.String())
		}),
	}

	// PublishCmd publishes an event.
	PublishCmd = ishell.Cmd{
		Name:    "publish",
		Aliases: []string{"pub"},
		Help:    "NAME [DATA] [public] [noack]",
		Func: MustBeStarted(func(c *ishell.Context) {
			name, data, typ, flags, err := parsePublish(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			DoCommand(c, func(p *protocol.Protocol) error {
				return p.SendEvent(name, data, protocol.DefaultEventTTL, typ, flags, nil)
			})
		}),
	}

	// SubscribeCmd subscribes events and prints them.
	SubscribeCmd = ishell.Cmd{
		Name:    "subscribe",
		Aliases: []string{"sub"},
		Help:    "FILTER [all|mine]",
		Func: MustBeStarted(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("FILTER required"))
				return
			}
			scope, err := parseScope(c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			DoCommand(c, func(p *protocol.Protocol) error {
				return p.Subscribe(c.Args[0], s.EventReceived, scope)
			})
		}),
	}

	// UnsubscribeCmd removes event handlers.
	UnsubscribeCmd = ishell.Cmd{
		Name:    "unsubscribe",
		Aliases: []string{"unsub"},
		Help:    "[FILTER]",
		Func: MustBeStarted(func(c *ishell.Context) {
			filter := protocol.MatchAll
			if len(c.Args) > 0 {
				filter = c.Args[0]
			}
			DoCommand(c, func(p *protocol.Protocol) error {
				p.RemoveEventHandlers(filter)
				return nil
			})
		}),
	}

	// DescribeCmd posts the describe document.
	DescribeCmd = ishell.Cmd{
		Name:    "describe",
		Aliases: []string{"desc"},
		Help:    "[FLAGS]",
		Func: MustBeStarted(func(c *ishell.Context) {
			flags, err := parseDescribeFlags(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			DoCommand(c, func(p *protocol.Protocol) error {
				return p.Command(protocol.CommandDescribe, flags)
			})
		}),
	}

	// TimeCmd requests the time from the cloud.
	TimeCmd = ishell.Cmd{
		Name: "time",
		Help: "",
		Func: MustBeStarted(func(c *ishell.Context) {
			DoCommand(c, func(p *protocol.Protocol) error {
				return p.Command(protocol.CommandRequestTime, nil)
			})
		}),
	}

	// PingCmd sends a keepalive ping.
	PingCmd = ishell.Cmd{
		Name: "ping",
		Help: "",
		Func: MustBeStarted(func(c *ishell.Context) {
			DoCommand(c, func(p *protocol.Protocol) error {
				return p.Command(protocol.CommandPing, nil)
			})
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf := device.NewConfig()
	if err := conf.Load(); err != nil {
		log.Fatalln(err)
	}
	New(conf).WithAutoConnect(true).Run(flag.Args()...)
}
