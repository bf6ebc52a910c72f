package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"io/ioutil"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/robotalks/cloudlink/pkg/handshake"
)

const (
	deviceKeyBits = 1024
	serverKeyBits = 2048
)

func newKeygenCmd() *cobra.Command {
	var (
		dir        string
		deviceOnly bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate device and server key files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deviceKey, err := rsa.GenerateKey(rand.Reader, deviceKeyBits)
			if err != nil {
				return err
			}
			files := map[string][]byte{
				"device_key.der":        x509.MarshalPKCS1PrivateKey(deviceKey),
				"device_public_key.der": handshake.MarshalPublicKey(&deviceKey.PublicKey),
			}
			if !deviceOnly {
				serverKey, err := rsa.GenerateKey(rand.Reader, serverKeyBits)
				if err != nil {
					return err
				}
				files["server_key.der"] = x509.MarshalPKCS1PrivateKey(serverKey)
				files["server_public_key.der"] = handshake.MarshalPublicKey(&serverKey.PublicKey)
			}
			for name, data := range files {
				path := filepath.Join(dir, name)
				if err := ioutil.WriteFile(path, data, 0600); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Output directory")
	cmd.Flags().BoolVar(&deviceOnly, "device-only", false, "Only generate the device key pair")
	return cmd
}
