package audio

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jochenvg/go-udev"
)

// HotplugEvent names why WatchHotplug woke up.
type HotplugEvent struct {
	Action     string // "add" or "remove"
	DeviceName string
}

// WatchHotplug monitors udev for sound-subsystem add/remove events and
// sends one HotplugEvent per transition on the returned channel until
// ctx is cancelled. It exists because a USB sound card dropping mid-QSO
// otherwise surfaces to the demodulator only as silence, indistinguishable
// from a quiet channel — this lets a caller log it, or re-Open a Host
// against whatever device replaces it.
func WatchHotplug(ctx context.Context, logger *log.Logger) (<-chan HotplugEvent, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("audio.hotplug")

	u := udev.Udev{}
	monitor := u.NewMonitorFromNetlink("udev")
	if err := monitor.FilterAddMatchSubsystem("sound"); err != nil {
		return nil, err
	}

	deviceCh, errCh, err := monitor.DeviceChan(ctx)
	if err != nil {
		return nil, err
	}

	events := make(chan HotplugEvent, 8)
	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-errCh:
				if err != nil {
					logger.Warn("udev monitor error", "error", err)
				}
			case dev, ok := <-deviceCh:
				if !ok {
					return
				}
				name := dev.Sysname()
				if !strings.HasPrefix(name, "card") && !strings.HasPrefix(name, "pcm") {
					continue
				}
				action := dev.Action()
				if action != "add" && action != "remove" {
					continue
				}
				ev := HotplugEvent{Action: action, DeviceName: name}
				logger.Info("sound device event", "action", ev.Action, "device", ev.DeviceName)
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}
