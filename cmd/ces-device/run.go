package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/sweeney/ces-device/internal/config"
	"github.com/sweeney/ces-device/internal/control"
	deverrors "github.com/sweeney/ces-device/internal/errors"
	"github.com/sweeney/ces-device/internal/logic"
	"github.com/sweeney/ces-device/internal/mqtt"
	"github.com/sweeney/ces-device/internal/status"
	"github.com/sweeney/ces-device/internal/ui"
	"github.com/sweeney/ces-device/internal/web"
)

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		PollMs:      cfg.Poll.Milliseconds(),
		TickMs:      cfg.Tick.Milliseconds(),
		GraceMs:     cfg.GracePeriod.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
	}
}

// connectMQTT returns nil interfaces when no broker is configured.
func connectMQTT(cfg *config.Config, log zerolog.Logger) (mqtt.Publisher, mqtt.ConnectionStatus, error) {
	if cfg.Broker == "" {
		log.Info().Msg("no broker configured, MQTT publishing disabled")
		return nil, nil, nil
	}
	pub, err := mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID, log)
	if err != nil {
		return nil, nil, fmt.Errorf("init mqtt: %w", err)
	}
	return pub, pub, nil
}

func run(cfg *config.Config, log zerolog.Logger, stdin io.Reader, stdout io.Writer) error {
	publisher, mqttStatus, err := connectMQTT(cfg, log)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Close()
	}

	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	dispatcher := control.NewDispatcher(16)

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, dispatcher, log)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer shutdownHTTP(srv, 2*time.Second, log)
	}

	go readCommands(control.NewLineSource(stdin), dispatcher, tracker, stdout, log)

	device := logic.NewDevice(cfg.Device(), time.Now)

	log.Info().
		Dur("poll", cfg.Poll).
		Dur("tick", cfg.Tick).
		Dur("grace", cfg.GracePeriod).
		Str("broker", cfg.Broker).
		Dur("heartbeat", cfg.Heartbeat).
		Msg("started")

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(device, publisher, mqttStatus, tracker, log, cfg.Heartbeat, time.Now, ticker.C, dispatcher.Requests(), sigCh)
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func shutdownHTTP(srv shutdowner, timeout time.Duration, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown")
	}
}

// readCommands feeds line commands to the run loop until src is exhausted.
// Queries are answered here from the tracker.
func readCommands(src control.Source, sub control.Submitter, tracker *status.Tracker, out io.Writer, log zerolog.Logger) {
	defer src.Close()
	for {
		cmd, err := src.Next()
		if errors.Is(err, io.EOF) {
			return
		}
		var dErr *deverrors.DeviceError
		if errors.As(err, &dErr) {
			log.Warn().Err(err).Msg("rejected command")
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if err != nil {
			log.Error().Err(err).Msg("command input failed, no longer reading commands")
			return
		}

		switch cmd.Op {
		case control.OpStatus:
			fmt.Fprintf(out, "%s\n", status.FormatJSON(tracker.Snapshot()))
			continue
		case control.OpRecords:
			for _, r := range tracker.Snapshot().Records {
				fmt.Fprintln(out, r.String())
			}
			continue
		}

		if err := sub.Submit(context.Background(), cmd); err != nil {
			log.Error().Err(err).Str("command", cmd.String()).Msg("command failed")
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func logEvent(log zerolog.Logger, ev logic.Event) {
	e := log.Info()
	if ev.Type == logic.EventCountdown || ev.Type == logic.EventBattery {
		e = log.Debug()
	}
	e = e.Str("event", string(ev.Type)).
		Int("battery", ev.Battery).
		Str("remaining", logic.FormatCountdown(ev.Remaining))
	if ev.Reason != "" {
		e = e.Str("reason", ev.Reason)
	}
	if ev.Record != nil {
		e = e.Str("record", ev.Record.String())
	}
	e.Msg("device event")
}

// runLoop owns the device. Every command and timer advance happens on this
// goroutine; the tracker is the only state shared with other goroutines.
// publisher and mqttStatus may be nil.
func runLoop(device *logic.Device, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, log zerolog.Logger, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, requests <-chan control.Request, sig <-chan os.Signal) error {
	lastHeartbeat := now()

	refresh := func() {
		tracker.Update(device.Snapshot(), device.Records())
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	publishSystem := func(at time.Time, event, reason string) {
		if publisher == nil {
			return
		}
		refresh()
		snap := tracker.Snapshot()
		se := mqtt.SystemEvent{
			Timestamp:  at,
			Event:      event,
			Reason:     reason,
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, mqtt.NewMessageID(at), event, reason),
		}
		if err := publisher.PublishSystem(se); err != nil {
			log.Error().Err(err).Str("event", event).Msg("system publish failed")
		}
	}

	flush := func() {
		for _, ev := range device.Events() {
			logEvent(log, ev)
			if publisher == nil {
				continue
			}
			if err := publisher.Publish(ev); err != nil {
				log.Error().Err(err).Str("event", string(ev.Type)).Msg("publish failed")
				// Don't crash on publish failure
			}
		}
		refresh()
	}

	publishSystem(lastHeartbeat, "STARTUP", "")
	flush()

	for {
		select {
		case s := <-sig:
			name := signalName(s)
			log.Info().Str("signal", name).Msg("shutting down")
			flush()
			publishSystem(now(), "SHUTDOWN", name)
			return nil

		case req := <-requests:
			t := now()
			device.Advance(t)
			control.Apply(device, req.Command)
			req.Done(nil)
			log.Info().Str("command", req.Command.String()).Msg("command applied")
			flush()

		case <-tick:
			t := now()
			device.Advance(t)
			flush()

			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				log.Info().Int("battery", device.Battery().Charge()).Bool("powered", device.IsPowered()).Msg("heartbeat")
				publishSystem(t, "HEARTBEAT", "")
			}
		}
	}
}

func runTUI(cfg *config.Config, log zerolog.Logger) error {
	publisher, _, err := connectMQTT(cfg, log)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Close()
	}

	device := logic.NewDevice(cfg.Device(), time.Now)
	model := ui.New(ui.Options{
		Device: device,
		Poll:   cfg.Poll,
		OnEvent: func(ev logic.Event) {
			logEvent(log, ev)
			if publisher == nil {
				return
			}
			if err := publisher.Publish(ev); err != nil {
				log.Error().Err(err).Str("event", string(ev.Type)).Msg("publish failed")
			}
		},
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
