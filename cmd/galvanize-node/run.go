package main

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ContinuumBridge/galvanize-test-node-app/internal/adapter"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/config"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/diag"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/display"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/gpiobutton"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/node"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/sched"
	"github.com/ContinuumBridge/galvanize-test-node-app/internal/transport"
)

var (
	configPath   string
	serialDevice string
	gpioPin      string
	diagPath     string
	diagInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the node against real or simulated collaborators",
	RunE:  runNode,
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "/etc/galvanize-node/config.yaml", "Path to the YAML runtime config")
	runCmd.Flags().StringVar(&serialDevice, "serial-port", "", "Serial device for the radio adaptor (empty: the config file's serialPort; no real radio if that is empty too)")
	runCmd.Flags().StringVar(&gpioPin, "gpio-pin", "", "GPIO pin name for the button (empty: the config file's gpioPin; no real button if that is empty too)")
	runCmd.Flags().StringVar(&diagPath, "diag-file", "", "Path to periodically write the diagnostic ring snapshot (empty: disabled)")
	runCmd.Flags().DurationVar(&diagInterval, "diag-interval", 30*time.Second, "How often to write the diagnostic ring snapshot")
}

// runNode wires every component together and blocks until a termination
// signal arrives. Button and radio-frame delivery always accepts host-driven
// JSON envelopes on stdin (§6.2); --serial-port and --gpio-pin additionally
// attach the real hardware collaborators standing in for those contracts.
func runNode(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// --serial-port/--gpio-pin override the config file's defaults; neither
	// being set at all (flag empty, config field empty) means that
	// collaborator is left to the stdio bridge only.
	if serialDevice == "" {
		serialDevice = cfg.SerialPort
	}
	if gpioPin == "" {
		gpioPin = cfg.GPIOPin
	}

	events := make(chan func(), 256)
	dispatch := func(fn func()) { events <- fn }
	sc := sched.NewReal(dispatch)

	var radio transport.Frames
	if serialDevice != "" {
		s, err := transport.Open(serialDevice)
		if err != nil {
			return err
		}
		defer s.Close()
		radio = s
	}

	host := newStdioHost(os.Stdout, radio)
	a := adapter.New(host, logger)
	a.AnnounceStarting()
	disp := display.New(a)
	disp.SetRevertMessage(cfg.RevertMessage)
	config.ApplySlots(disp, cfg.Slots)

	ctrl := node.New(a, disp, sc, cfg.NodeConfig(), logger)
	a.Bind(ctrl)

	ring := diag.New()
	ctrl.SetDiag(ring)

	stop := make(chan struct{})
	defer close(stop)

	if radio != nil {
		go forwardRadioFrames(radio, a, dispatch, logger)
	}
	if gpioPin != "" {
		buttonEvents := make(chan gpiobutton.Event, 16)
		if err := gpiobutton.Open(gpioPin, buttonEvents, stop); err != nil {
			return err
		}
		go forwardButtonEvents(buttonEvents, ctrl, dispatch)
	}
	go func() {
		if err := readStdioEvents(os.Stdin, func(msg adapter.InboundMessage) {
			dispatch(func() {
				if err := a.HandleInbound(msg); err != nil {
					logger.Warn("run: inbound message rejected", "err", err)
				}
			})
		}); err != nil {
			logger.Warn("run: stdin event stream ended", "err", err)
		}
	}()

	if diagPath != "" {
		go runDiagSnapshotter(dispatch, ring, diagPath, diagInterval, stop)
	}

	dispatch(func() {
		ctrl.Boot()
		a.AnnounceRunning()
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case fn := <-events:
			fn()
		case <-sig:
			a.AnnounceStopped()
			return nil
		}
	}
}

func forwardRadioFrames(radio transport.Frames, a *adapter.Adapter, dispatch func(func()), logger *log.Logger) {
	for {
		frame, err := radio.ReadFrame()
		if err != nil {
			logger.Warn("run: radio read failed, stopping forwarder", "err", err)
			return
		}
		ev := radioEventFromFrame(frame)
		dispatch(func() {
			if err := a.HandleEvent(ev); err != nil {
				logger.Warn("run: radio event rejected", "err", err)
			}
		})
	}
}

// radioEventFromFrame wraps a raw radio frame the same way the host
// framework's "galvanize_button" characteristic would: base64 inside a JSON
// string, per §6.2.
func radioEventFromFrame(frame []byte) adapter.InboundEvent {
	b64, _ := json.Marshal(base64.StdEncoding.EncodeToString(frame))
	return adapter.InboundEvent{Characteristic: "galvanize_button", Data: b64}
}

func forwardButtonEvents(ch <-chan gpiobutton.Event, ctrl *node.Controller, dispatch func(func())) {
	for ev := range ch {
		state := 0
		if ev.Pressed {
			state = 1
		}
		at := ev.At
		dispatch(func() { ctrl.HandleButton(state, at) })
	}
}

func runDiagSnapshotter(dispatch func(func()), ring *diag.Ring, path string, interval time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			done := make(chan struct{})
			dispatch(func() {
				defer close(done)
				data, err := ring.Dump()
				if err != nil {
					logger.Warn("run: diag snapshot encode failed", "err", err)
					return
				}
				if err := os.WriteFile(path, data, 0o644); err != nil {
					logger.Warn("run: diag snapshot write failed", "err", err)
				}
			})
			<-done
		}
	}
}
