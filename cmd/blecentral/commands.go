package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	ble "github.com/rigado/blecentral"
	"github.com/rigado/blecentral/linux/hci"
	"github.com/urfave/cli"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func scanCommand(c *cli.Context) error {
	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(ctx, c, ble.OptReportAllDiscoveries(c.Bool("all")))
	if err != nil {
		return err
	}
	defer s.close()

	if d := c.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if err := s.b.StartScanning(c.StringSlice("uuid"), c.Bool("dup")); err != nil {
		return errors.Wrap(err, "can't start scanning")
	}

	asJSON := c.Bool("json")
	for {
		e, err := s.wait(ctx, func(e ble.Event) bool {
			switch e.(type) {
			case ble.DiscoverEvent, ble.ScanStopEvent:
				return true
			}
			return false
		})
		if err != nil {
			break
		}

		d, ok := e.(ble.DiscoverEvent)
		if !ok {
			// stopped by another process
			return nil
		}
		if asJSON {
			err = printDiscoveryJSON(os.Stdout, d)
		} else {
			printDiscovery(os.Stdout, d)
		}
		if err != nil {
			return err
		}
	}

	return s.b.StopScanning()
}

// discovery is the JSON form of a discover event.
type discovery struct {
	ID            string             `json:"id"`
	Address       string             `json:"address"`
	AddressType   string             `json:"addressType"`
	Connectable   bool               `json:"connectable"`
	Scannable     bool               `json:"scannable"`
	RSSI          int8               `json:"rssi"`
	Advertisement *ble.Advertisement `json:"advertisement"`
}

func printDiscoveryJSON(w io.Writer, d ble.DiscoverEvent) error {
	b, err := json.Marshal(discovery{
		ID:            d.ID,
		Address:       d.Address,
		AddressType:   d.AddressType.String(),
		Connectable:   d.Connectable,
		Scannable:     d.Scannable,
		RSSI:          d.RSSI,
		Advertisement: d.Advertisement,
	})
	if err != nil {
		return errors.Wrap(err, "can't marshal discovery")
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

func printDiscovery(w io.Writer, d ble.DiscoverEvent) {
	flags := []string{}
	if d.Connectable {
		flags = append(flags, "connectable")
	}
	if d.Scannable {
		flags = append(flags, "scannable")
	}

	fmt.Fprintf(w, "%s (%v) rssi %d [%s]", d.Address, d.AddressType, d.RSSI, strings.Join(flags, " "))
	a := d.Advertisement
	if a.LocalName != "" {
		fmt.Fprintf(w, " name %q", a.LocalName)
	}
	if len(a.ServiceUUIDs) > 0 {
		fmt.Fprintf(w, " services %s", strings.Join(a.ServiceUUIDs, ","))
	}
	if len(a.ManufacturerData) > 0 {
		fmt.Fprintf(w, " mfg %x", a.ManufacturerData)
	}
	fmt.Fprintln(w)
}

func connectCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("connect takes one address")
	}
	address := strings.ToLower(c.Args().First())
	if _, err := ble.ParseMAC(address); err != nil {
		return err
	}
	id := ble.Identifier(address)

	var params ble.ConnParams
	switch {
	case c.Bool("random") && c.Bool("public"):
		return errors.New("--random and --public are exclusive")
	case c.Bool("random"):
		t := ble.AddrTypeRandom
		params.AddressType = &t
	case c.Bool("public"):
		t := ble.AddrTypePublic
		params.AddressType = &t
	}

	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(ctx, c)
	if err != nil {
		return err
	}
	defer s.close()

	cctx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
	err = s.b.ConnectContext(cctx, id, params)
	cancel()
	if err != nil {
		return errors.Wrapf(err, "can't connect to %s", address)
	}
	fmt.Printf("connected to %s\n", address)

	if c.Bool("pair") {
		if err := pair(ctx, s, id); err != nil {
			s.b.Disconnect(id)
			return err
		}
	}

	hold := ctx
	if d := c.Duration("hold"); d > 0 {
		var cancel context.CancelFunc
		hold, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	if gone := follow(hold, s, id); gone {
		return nil
	}

	if err := s.b.Disconnect(id); err != nil {
		return err
	}
	dctx, cancel := context.WithTimeout(context.Background(), powerOnTimeout)
	defer cancel()
	follow(dctx, s, id)
	return nil
}

// pair encrypts the link of id and waits for the outcome.
func pair(ctx context.Context, s *session, id string) error {
	if err := s.b.Encrypt(id); err != nil {
		return errors.Wrap(err, "can't start pairing")
	}

	e, err := s.wait(ctx, func(e ble.Event) bool {
		switch e := e.(type) {
		case ble.EncryptChangeEvent:
			return e.ID == id
		case ble.EncryptFailEvent:
			return e.ID == id
		case ble.DisconnectEvent:
			return e.ID == id
		}
		return false
	})
	if err != nil {
		return err
	}

	switch e := e.(type) {
	case ble.EncryptChangeEvent:
		fmt.Printf("encrypted: %v\n", e.Encrypted)
		return nil
	case ble.EncryptFailEvent:
		return errors.Wrap(e.Err, "pairing failed")
	default:
		return errors.New("disconnected while pairing")
	}
}

// follow prints the events of id until ctx is done or id disconnects,
// reporting whether it did.
func follow(ctx context.Context, s *session, id string) bool {
	for {
		e, err := s.wait(ctx, func(ble.Event) bool { return true })
		if err != nil {
			return false
		}

		switch e := e.(type) {
		case ble.MTUEvent:
			if e.ID == id {
				fmt.Printf("mtu %d\n", e.MTU)
			}
		case ble.NotifyEvent:
			if e.ID == id {
				fmt.Printf("handle 0x%04x: %x\n", e.Handle, e.Data)
			}
		case ble.ConnParamsUpdateEvent:
			if e.ID == id {
				fmt.Printf("connection parameters %v-%v latency %d timeout %v\n",
					e.MinInterval, e.MaxInterval, e.Latency, e.SupervisionTimeout)
			}
		case ble.LTKEvent:
			if e.ID == id {
				fmt.Printf("ltk %x\n", e.LTK)
			}
		case ble.DisconnectEvent:
			if e.ID == id {
				fmt.Printf("disconnected: %v\n", reasonString(e.Reason))
				return true
			}
		}
	}
}

func setAddressCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("set-address takes one address")
	}
	mac := strings.ToLower(c.Args().First())

	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(ctx, c)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.b.SetAddress(mac); err != nil {
		return err
	}

	// the controller resets and is brought up again with the new address
	wctx, cancel := context.WithTimeout(ctx, powerOnTimeout)
	defer cancel()
	_, err = s.wait(wctx, func(e ble.Event) bool {
		a, ok := e.(ble.AddressChangeEvent)
		return ok && a.Address == mac
	})
	if err != nil {
		return errors.Wrapf(err, "address not changed to %s", mac)
	}
	fmt.Printf("address set to %s\n", mac)
	return nil
}

func reasonString(reason uint8) string {
	return fmt.Sprintf("%v (0x%02x)", hci.ErrCommand(reason), reason)
}
