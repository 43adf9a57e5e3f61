// Command acoustimodem runs the acoustic modem as a daemon: it opens a
// sound card, optionally keys a PTT GPIO line, advertises itself on the
// LAN, and exposes a virtual KISS TNC for client applications — the
// acoustic-DSSS analogue of the direwolf binary this tree is grounded
// on.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/acoustigo/dsssmodem/audio"
	"github.com/acoustigo/dsssmodem/control"
	"github.com/acoustigo/dsssmodem/dsss"
	"github.com/acoustigo/dsssmodem/internal/config"
	"github.com/acoustigo/dsssmodem/transport"
)

func main() {
	configPath := pflag.StringP("config", "f", "", "path to a YAML config file")
	writeDefault := pflag.String("write-config", "", "write the default config to the given path and exit")
	pttChip := pflag.String("ptt-chip", "", "GPIO chip device for PTT keying, e.g. /dev/gpiochip0 (empty disables PTT)")
	pttLine := pflag.Int("ptt-line", 0, "GPIO line offset for PTT keying")
	pttInvert := pflag.Bool("ptt-invert", false, "invert the PTT keying line")
	advertise := pflag.Bool("advertise", false, "advertise this modem on the LAN via DNS-SD")
	pflag.Parse()

	if *writeDefault != "" {
		if err := config.WriteDefault(*writeDefault); err != nil {
			fatal(err)
		}
		return
	}

	file, err := config.Load(*configPath, pflag.Args())
	if err != nil {
		fatal(err)
	}
	cfg := file.ToDSSS()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if lvl, err := log.ParseLevel(file.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bridge := &frameBridge{log: logger}
	ctl, err := control.New(cfg, bridge, logger)
	if err != nil {
		fatal(err)
	}
	defer ctl.Close()

	var ptt *audio.PTT
	if *pttChip != "" {
		ptt, err = audio.NewPTT(*pttChip, *pttLine, *pttInvert)
		if err != nil {
			fatal(err)
		}
		defer ptt.Close()
	}

	host, err := audio.Open(ctl, file.AudioDevice, cfg.SamplesPerBit(), ptt)
	if err != nil {
		fatal(err)
	}
	defer host.Close()

	hotplugEvents, err := audio.WatchHotplug(ctx, logger)
	if err != nil {
		logger.Warn("hotplug monitoring unavailable", "error", err)
	} else {
		go func() {
			for ev := range hotplugEvents {
				logger.Info("audio hotplug event", "action", ev.Action, "device", ev.DeviceName)
			}
		}()
	}

	kissPort, err := transport.Open(ctl, host, file.KissPort, logger)
	if err != nil {
		fatal(err)
	}
	defer kissPort.Close()
	bridge.port = kissPort

	if *advertise {
		stopAdvertising, err := advertiseOnLAN(ctx, logger)
		if err != nil {
			logger.Warn("DNS-SD advertisement failed", "error", err)
		} else {
			defer stopAdvertising()
		}
	}

	logger.Info("acoustimodem running", "kiss_port", kissPort.Name())
	<-ctx.Done()
	logger.Info("shutting down")
}

// frameBridge forwards demodulator notifications to whichever KISSPort
// is currently serving clients. It exists because the Controller (and
// its Observer) has to be constructed before the KISSPort that
// ultimately delivers frames to a client application.
type frameBridge struct {
	dsss.NoOpObserver
	log  *log.Logger
	port *transport.KISSPort
}

func (b *frameBridge) FrameReceived(f dsss.Frame) {
	if b.port == nil {
		return
	}
	if err := b.port.DeliverFrame(f); err != nil {
		b.log.Warn("failed to deliver frame to KISS client", "error", err)
	}
}

func (b *frameBridge) SyncAcquired(s dsss.SyncState) {
	b.log.Debug("sync acquired", "mode", s.Mode)
}

func (b *frameBridge) SyncLost() {
	b.log.Debug("sync lost")
}

func advertiseOnLAN(ctx context.Context, logger *log.Logger) (func(), error) {
	cfg := dnssd.Config{
		Name: "acoustimodem",
		Type: "_acoustimodem._tcp",
		Port: 8001,
	}
	service, err := dnssd.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("building dns-sd service: %w", err)
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		return nil, fmt.Errorf("building dns-sd responder: %w", err)
	}
	handle, err := responder.Add(service)
	if err != nil {
		return nil, fmt.Errorf("registering dns-sd service: %w", err)
	}

	go func() {
		if err := responder.Respond(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("dns-sd responder stopped", "error", err)
		}
	}()

	return func() { responder.Remove(handle) }, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "acoustimodem:", err)
	os.Exit(1)
}
