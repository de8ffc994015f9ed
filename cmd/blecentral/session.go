package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	ble "github.com/rigado/blecentral"
	"github.com/rigado/blecentral/linux"
	"github.com/urfave/cli"
)

const powerOnTimeout = 10 * time.Second

// session is an initialized stack and the events it reports.
type session struct {
	b      *linux.Bindings
	events chan ble.Event
}

func transportOptions(c *cli.Context) []ble.Option {
	switch {
	case c.GlobalString("uart") != "":
		return []ble.Option{ble.OptTransportH4Uart(c.GlobalString("uart"), c.GlobalUint("baud"))}
	case c.GlobalString("h4") != "":
		return []ble.Option{ble.OptTransportH4Socket(c.GlobalString("h4"), 2*time.Second)}
	}

	opts := []ble.Option{ble.OptTransportFromEnv()}
	if id := c.GlobalInt("device"); id >= 0 {
		opts = append(opts, ble.OptTransportHCISocket(id))
	}
	if c.GlobalBool("no-user-channel") {
		opts = append(opts, ble.OptTransportUserChannel(false))
	}
	return opts
}

// openSession brings the controller up and waits for it to power on.
func openSession(ctx context.Context, c *cli.Context, opts ...ble.Option) (*session, error) {
	events := make(chan ble.Event, 256)
	opts = append(opts,
		ble.OptEventHandler(func(e ble.Event) { events <- e }),
		ble.OptSecureConnections(c.GlobalBool("sc")),
	)
	opts = append(opts, transportOptions(c)...)

	b, err := linux.NewBindings(opts...)
	if err != nil {
		return nil, err
	}
	if err := b.Init(); err != nil {
		b.Close()
		return nil, errors.Wrap(err, "can't init controller")
	}

	s := &session{b: b, events: events}
	ctx, cancel := context.WithTimeout(ctx, powerOnTimeout)
	defer cancel()
	_, err = s.wait(ctx, func(e ble.Event) bool {
		sc, ok := e.(ble.StateChangeEvent)
		return ok && sc.State == ble.StatePoweredOn
	})
	if err != nil {
		b.Close()
		return nil, errors.Wrap(err, "controller not powered on")
	}
	return s, nil
}

// wait returns the first event match accepts.
func (s *session) wait(ctx context.Context, match func(ble.Event) bool) (ble.Event, error) {
	for {
		select {
		case e := <-s.events:
			logEvent(e)
			if match(e) {
				return e, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *session) close() {
	if err := s.b.Close(); err != nil {
		ble.GetLogger().Debugf("close: %v", err)
	}
}

func logEvent(e ble.Event) {
	switch e := e.(type) {
	case ble.StateChangeEvent:
		ble.GetLogger().Infof("controller %v", e.State)
	case ble.AddressChangeEvent:
		ble.GetLogger().Infof("controller address %s (%v)", e.Address, e.AddressType)
	}
}
