// Command blecentral scans for and connects to BLE peripherals over a raw
// HCI controller.
package main

import (
	"fmt"
	"os"
	"time"

	ble "github.com/rigado/blecentral"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "blecentral"
	app.Usage = "BLE central over a raw HCI controller"
	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "device",
			Value: -1,
			Usage: "hci device index, BLE_HCI_DEVICE_ID when unset",
		},
		cli.BoolFlag{
			Name:  "no-user-channel",
			Usage: "open the raw channel instead of the user channel",
		},
		cli.StringFlag{
			Name:  "uart",
			Usage: "H4 serial port of the controller",
		},
		cli.UintFlag{
			Name:  "baud",
			Value: 1000000,
			Usage: "H4 serial baud rate",
		},
		cli.StringFlag{
			Name:  "h4",
			Usage: "H4 tcp server of the controller",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "debug, info, warn or error",
		},
		cli.BoolFlag{
			Name:  "sc",
			Usage: "pair with LE Secure Connections",
		},
	}
	app.Before = func(c *cli.Context) error {
		return ble.SetLogLevel(c.GlobalString("log-level"))
	}
	app.Commands = []cli.Command{
		{
			Name:  "scan",
			Usage: "Print the peripherals discovered",
			Flags: []cli.Flag{
				cli.DurationFlag{
					Name:  "duration",
					Value: 10 * time.Second,
					Usage: "scan duration, 0 for indefinitely",
				},
				cli.BoolFlag{
					Name:  "dup",
					Usage: "report duplicate advertisements",
				},
				cli.BoolFlag{
					Name:  "json",
					Usage: "print one JSON object per discovery",
				},
				cli.StringSliceFlag{
					Name:  "uuid",
					Usage: "only report advertisers of this service, repeatable",
				},
				cli.BoolFlag{
					Name:  "all",
					Usage: "report every advertising report",
				},
			},
			Action: scanCommand,
		},
		{
			Name:      "connect",
			Usage:     "Connect to a peripheral and print its events",
			ArgsUsage: "<address>",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "pair",
					Usage: "pair and encrypt the link once connected",
				},
				cli.BoolFlag{
					Name:  "random",
					Usage: "the address is random, for peripherals not discovered",
				},
				cli.BoolFlag{
					Name:  "public",
					Usage: "the address is public, for peripherals not discovered",
				},
				cli.DurationFlag{
					Name:  "timeout",
					Value: 10 * time.Second,
					Usage: "connect timeout",
				},
				cli.DurationFlag{
					Name:  "hold",
					Value: 5 * time.Second,
					Usage: "time to stay connected, 0 for until interrupted",
				},
			},
			Action: connectCommand,
		},
		{
			Name:      "set-address",
			Usage:     "Program the public address of the controller",
			ArgsUsage: "<mac>",
			Action:    setAddressCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
