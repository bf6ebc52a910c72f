package device

import (
	"encoding/hex"
	"fmt"

	"github.com/denisbrodbeck/machineid"

	"github.com/robotalks/cloudlink/pkg/handshake"
)

const machineIDApp = "cloudlink"

// MachineDeviceID derives a stable device id from the machine id. The
// machine id is hashed with the application name so it is not exposed.
func MachineDeviceID() ([]byte, error) {
	id, err := machineid.ProtectedID(machineIDApp)
	if err != nil {
		return nil, fmt.Errorf("machine id: %w", err)
	}
	return ParseDeviceID(id[:handshake.DeviceIDSize*2])
}

// ParseDeviceID decodes a hex device id.
func ParseDeviceID(s string) ([]byte, error) {
	id, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid device id %q: %w", s, err)
	}
	if len(id) != handshake.DeviceIDSize {
		return nil, fmt.Errorf("invalid device id %q: %d bytes", s, len(id))
	}
	return id, nil
}
