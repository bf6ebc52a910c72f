package main

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/robotalks/cloudlink/pkg/device"
	fx "github.com/robotalks/cloudlink/pkg/framework"
	"github.com/robotalks/cloudlink/pkg/protocol"
)

func newDeviceCmd() *cobra.Command {
	var (
		publishEvery time.Duration
		eventName    string
	)
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Run a device connected to the cloud",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := device.Default()
			if err := conf.Load(); err != nil {
				return err
			}
			env, err := conf.NewEnv()
			if err != nil {
				return err
			}
			if err := registerSamples(env.Registry); err != nil {
				return err
			}
			env.SetCallbacks(protocol.Callbacks{
				TimeSetter: protocol.TimeSetterFunc(func(t time.Time) {
					glog.Infof("time set: %s", t.UTC().Format(time.RFC3339))
				}),
				Signaler: protocol.SignalerFunc(func(on bool) {
					glog.Infof("signal: %v", on)
				}),
			})

			runner := fx.NewRunner().HandleSignals()
			runner.Go(fx.NamedRun("device", fx.RunFunc(env.Run)))
			if publishEvery > 0 {
				runner.Go(fx.NamedRun("publisher", fx.RunFunc(func(ctx context.Context) error {
					return publishLoop(ctx, env, eventName, publishEvery)
				})))
			}
			return runner.Wait()
		},
	}
	cmd.Flags().DurationVar(&publishEvery, "publish-every", 0, "Publish an uptime event periodically, 0 disables")
	cmd.Flags().StringVar(&eventName, "event", "uptime", "Name of the periodic event")
	return cmd
}

var started = time.Now()

func registerSamples(r *protocol.Registry) error {
	if err := r.Function("echo", func(arg string) int32 {
		glog.Infof("echo %q", arg)
		return int32(len(arg))
	}); err != nil {
		return err
	}
	return r.Variable("uptime", protocol.VarInt, func() interface{} {
		return int32(time.Since(started) / time.Second)
	})
}

func publishLoop(ctx context.Context, env *device.Env, name string, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		data := []byte(fmt.Sprintf("%d", int(time.Since(started)/time.Second)))
		if err := env.Publish(ctx, name, data, protocol.PrivateEvent, protocol.EmptyFlags); err != nil {
			glog.Warningf("publish %s: %v", name, err)
		}
	}
}
