package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/cloudlink/pkg/device"
)

//go-build: CGO_ENABLED=0

func init() {
	device.SetupFlags()
}

func main() {
	root := newRootCmd()
	err := root.Execute()
	glog.Flush()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// parseGoFlags marks the Go flags as parsed so glog does not complain.
func parseGoFlags() error {
	return flag.CommandLine.Parse(nil)
}
