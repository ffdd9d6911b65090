// Command envclock drives a 16x2 character clock with a rotary encoder and a
// temperature/humidity sensor, and reports its state over MQTT and HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"periph.io/x/conn/v3/physic"

	"github.com/sweeney/envclock/internal/app"
	"github.com/sweeney/envclock/internal/clock"
	"github.com/sweeney/envclock/internal/config"
	"github.com/sweeney/envclock/internal/console"
	"github.com/sweeney/envclock/internal/contrast"
	"github.com/sweeney/envclock/internal/display"
	"github.com/sweeney/envclock/internal/gpio"
	"github.com/sweeney/envclock/internal/logging"
	"github.com/sweeney/envclock/internal/mqtt"
	"github.com/sweeney/envclock/internal/render"
	"github.com/sweeney/envclock/internal/sensor"
	"github.com/sweeney/envclock/internal/status"
	"github.com/sweeney/envclock/internal/web"
)

func main() {
	configPath := flag.String("config", "/etc/envclock/config.yaml", "Config file (missing file uses defaults)")
	logLevel := flag.String("log-level", "", "Override log level (debug, info, warn, error)")
	printState := flag.Bool("print-state", false, "Print current inputs and sensor readings and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.JSON); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

func run(cfg *config.Config, printState bool) error {
	clk := clock.NewMonotonic()

	// Initialize inputs
	button, err := gpio.NewRealButton(cfg.GPIO.Chip, cfg.GPIO.SW)
	if err != nil {
		return fmt.Errorf("init button: %w", err)
	}
	defer button.Close()

	encoderLines, err := gpio.NewRealEncoder(cfg.GPIO.Chip, cfg.GPIO.CLK, cfg.GPIO.DT)
	if err != nil {
		return fmt.Errorf("init encoder: %w", err)
	}
	defer encoderLines.Close()

	reader := openSensor(cfg.Sensor)

	// Print state mode
	if printState {
		return printInputs(os.Stdout, button, encoderLines, reader)
	}

	// Initialize outputs
	lcd, err := display.Open(cfg.GPIO.Chip, display.PinMap{
		RS: cfg.GPIO.LCD.RS, E: cfg.GPIO.LCD.E,
		D4: cfg.GPIO.LCD.D4, D5: cfg.GPIO.LCD.D5, D6: cfg.GPIO.LCD.D6, D7: cfg.GPIO.LCD.D7,
	})
	if err != nil {
		return fmt.Errorf("init display: %w", err)
	}
	defer lcd.Close()

	pwm, err := contrast.OpenPWM(cfg.Contrast.Pin, physic.Frequency(cfg.Contrast.Frequency)*physic.Hertz)
	if err != nil {
		return fmt.Errorf("init contrast: %w", err)
	}
	defer pwm.Close()

	enc, err := app.AttachEncoder(encoderLines, clk)
	if err != nil {
		return err
	}

	session := uuid.NewString()
	broker := ""
	if cfg.MQTT.Enabled {
		broker = cfg.MQTT.Broker
	}
	tracker := status.NewTracker(time.Now(), session, status.Config{
		Broker:      broker,
		PollMs:      cfg.Loop.Poll.Duration().Milliseconds(),
		HeartbeatMs: cfg.Loop.Heartbeat.Duration().Milliseconds(),
		TopicPrefix: cfg.MQTT.TopicPrefix,
		HTTPAddr:    cfg.HTTP.Addr,
		SerialPort:  cfg.Serial.Port,
	})

	deps := app.Deps{
		Button:   button,
		Encoder:  enc,
		Sensor:   reader,
		Display:  lcd,
		Contrast: pwm,
		Clock:    clk,
		Tracker:  tracker,
	}

	// Initialize MQTT
	var (
		publisher  mqtt.Publisher
		mqttStatus mqtt.ConnectionStatus
	)
	if cfg.MQTT.Enabled {
		rp := mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   "envclock-" + session[:8],
			Topics:     mqtt.NewTopics(cfg.MQTT.TopicPrefix),
			BufferSize: cfg.MQTT.BufferSize,
		})
		defer rp.Close()
		publisher, mqttStatus = rp, rp
		deps.Publisher = rp
	}

	// Initialize serial console
	if cfg.Serial.Port != "" {
		port, err := console.Open(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			return fmt.Errorf("init console: %w", err)
		}
		defer port.Close()
		deps.Console = port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go srv.Run(ctx)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		deps.Notifier = srv
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http status server listening")
	}

	a := app.New(deps, app.Options{
		Session:     session,
		PublishRate: rate.Limit(cfg.MQTT.PublishRate),
		Burst:       cfg.MQTT.Burst,
	})
	a.SetContrast(cfg.Contrast.Initial)

	// Draw the first frame so STARTUP carries the real state
	a.Cycle()

	snap := tracker.Snapshot()
	publishSystem(publisher, mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	})

	log.Info().
		Str("session", session).
		Dur("poll", cfg.Loop.Poll.Duration()).
		Dur("heartbeat", cfg.Loop.Heartbeat.Duration()).
		Bool("mqtt", cfg.MQTT.Enabled).
		Msg("started")

	ticker := time.NewTicker(cfg.Loop.Poll.Duration())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(a, publisher, mqttStatus, tracker, cfg.Loop.Heartbeat.Duration(), time.Now, ticker.C, sigCh)
}

func runLoop(a *app.App, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			log.Info().Stringer("signal", s).Msg("shutting down")
			reason := signalName(s)
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    reason,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", reason)
			}
			publishSystem(publisher, event)
			return nil

		case <-tick:
			a.Cycle()
			t := now()

			if tracker != nil && mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}

			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				s := a.State()
				log.Info().Stringer("time", s.Time).Stringer("menu", s.Menu).Msg("heartbeat")

				hbEvent := mqtt.SystemEvent{Timestamp: t, Event: "HEARTBEAT"}
				if tracker != nil {
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				publishSystem(publisher, hbEvent)
			}
		}
	}
}

// publishSystem logs instead of failing; telemetry never stops the clock.
func publishSystem(publisher mqtt.Publisher, event mqtt.SystemEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishSystem(event); err != nil {
		log.Warn().Err(err).Str("event", event.Event).Msg("system event publish failed")
		return
	}
	log.Debug().Str("event", event.Event).Msg("published system event")
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

// openSensor returns the configured IIO device, the first device bound to
// the configured driver, or an Absent reader when neither exists.
func openSensor(cfg config.SensorConfig) sensor.Reader {
	if cfg.Device != "" {
		return sensor.NewIIO(cfg.Device)
	}
	s, err := sensor.FindIIO(cfg.Root, cfg.Driver)
	if err != nil {
		log.Warn().Err(err).Msg("sensor not found, readings will show as --")
		return sensor.Absent{}
	}
	return s
}

func printInputs(w io.Writer, button gpio.ButtonReader, encoder gpio.EncoderSource, r sensor.Reader) error {
	low, err := button.Low()
	if err != nil {
		return fmt.Errorf("read button: %w", err)
	}
	sample, err := encoder.Sample()
	if err != nil {
		return fmt.Errorf("read encoder: %w", err)
	}
	pressed := "released"
	if low {
		pressed = "pressed"
	}
	fmt.Fprintf(w, "SW: %s, CLK: %d, DT: %d, T: %s C, H: %s %%\n",
		pressed, sample>>1, sample&1,
		render.Reading(r.ReadTemperature()), render.Reading(r.ReadHumidity()))
	return nil
}
