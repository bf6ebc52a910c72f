package main

import (
	"github.com/robotalks/cloudlink/pkg/cli/sh"
	"github.com/robotalks/cloudlink/pkg/device"
)

//go-build: CGO_ENABLED=0

func init() {
	device.SetupFlags()
}

func main() {
	sh.Main()
}
