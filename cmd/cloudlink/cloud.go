package main

import (
	"context"
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/robotalks/cloudlink/pkg/cloudsim"
	fx "github.com/robotalks/cloudlink/pkg/framework"
	"github.com/robotalks/cloudlink/pkg/handshake"
	"github.com/robotalks/cloudlink/pkg/transport/endpoint"
)

func newCloudCmd() *cobra.Command {
	var (
		listenURL  string
		keyFile    string
		deviceKeys string
		noHello    bool
		pushTime   bool
	)
	cmd := &cobra.Command{
		Use:   "cloud",
		Short: "Run a cloud endpoint accepting devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := loadPrivateKey(keyFile)
			if err != nil {
				return err
			}
			ln, err := endpoint.Listen(listenURL)
			if err != nil {
				return err
			}
			server := cloudsim.NewServer(key)
			server.SendHello = !noHello
			if deviceKeys != "" {
				server.Lookup = dirLookup(deviceKeys)
			}

			runner := fx.NewRunner().HandleSignals()
			server.OnSession = func(sess *cloudsim.Session) {
				go watchSession(runner.Context, sess, pushTime)
			}
			glog.Infof("listening on %s", listenURL)
			runner.Go(fx.NamedRun("cloud", fx.RunFunc(func(ctx context.Context) error {
				return server.Serve(ctx, ln)
			})))
			return runner.Wait()
		},
	}
	cmd.Flags().StringVar(&listenURL, "listen", "tcp://:5683", "Listen URL: tcp://, udp:// or ws://")
	cmd.Flags().StringVar(&keyFile, "key", "server_key.der", "Server private key file")
	cmd.Flags().StringVar(&deviceKeys, "device-keys", "", "Directory of device public keys named by hex device id, empty trusts the key in the hello")
	cmd.Flags().BoolVar(&noHello, "no-hello", false, "Do not answer device hellos")
	cmd.Flags().BoolVar(&pushTime, "push-time", true, "Send the time to every new session")
	return cmd
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, err := handshake.ParsePrivateKey(handshake.DecodeKey(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return key, nil
}

// dirLookup finds device public keys as <dir>/<device id hex>.der.
func dirLookup(dir string) handshake.KeyLookup {
	return func(deviceID, _ []byte) (*rsa.PublicKey, error) {
		data, err := ioutil.ReadFile(filepath.Join(dir, hex.EncodeToString(deviceID)+".der"))
		if err != nil {
			return nil, err
		}
		return handshake.ParsePublicKey(handshake.DecodeKey(data))
	}
}

func watchSession(ctx context.Context, sess *cloudsim.Session, pushTime bool) {
	if pushTime {
		callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := sess.SetTime(callCtx, time.Now()); err != nil {
			glog.Warningf("session %s: set time: %v", sess.ID, err)
		}
		cancel()
	}
	for ev := range sess.Events() {
		glog.Infof("session %s: event %s (%d bytes): %q", sess.ID, ev.Name, len(ev.Data), ev.Data)
	}
	glog.Infof("session %s: closed: %v", sess.ID, sess.Err())
}
