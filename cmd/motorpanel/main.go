package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Panel PanelCommand `command:"panel" description:"Open the motor control panel"`
	Setup SetupCommand `command:"setup" description:"Probe a bridge and choose which motors to show"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Motorpanel - terminal control panel for motors behind a robot middleware bridge"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
