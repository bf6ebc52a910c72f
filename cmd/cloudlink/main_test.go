package main

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cloudlink/pkg/handshake"
	"github.com/robotalks/cloudlink/pkg/handshake/handshaketest"
)

func TestKeygen(t *testing.T) {
	dir, err := ioutil.TempDir("", "cloudlink")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"keygen", "--dir", dir})
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "server_public_key.der")

	read := func(name string) []byte {
		data, err := ioutil.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		return data
	}
	keys, err := handshake.LoadKeyMaterial(read("device_key.der"), read("server_public_key.der"))
	require.NoError(t, err)
	require.NotNil(t, keys)

	serverKey, err := loadPrivateKey(filepath.Join(dir, "server_key.der"))
	require.NoError(t, err)
	require.Equal(t, serverKeyBits/8, serverKey.Size())

	_, err = loadPrivateKey(filepath.Join(dir, "device_public_key.der"))
	require.Error(t, err)
}

func TestDirLookup(t *testing.T) {
	dir, err := ioutil.TempDir("", "cloudlink")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	pub := &handshaketest.DeviceKey().PublicKey
	name := "54e1c888f6d9492bebee1ee9.der"
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, name), handshake.MarshalPublicKey(pub), 0600))

	lookup := dirLookup(dir)
	found, err := lookup(handshaketest.DeviceID, nil)
	require.NoError(t, err)
	require.Zero(t, pub.N.Cmp(found.N))

	_, err = lookup([]byte{1, 2, 3}, nil)
	require.Error(t, err)
}
