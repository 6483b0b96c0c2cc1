package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eclipse/paho.mqtt.golang"
	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/matt-g-everett/dashtx/api"
	"github.com/matt-g-everett/dashtx/preview"
	"github.com/matt-g-everett/dashtx/stream"
)

type app struct {
	Config   stream.Config
	Client   mqtt.Client
	Streamer *stream.Streamer
	Api      *api.Api
	Style    *stream.Style
}

func newApp() *app {
	a := new(app)
	a.Style = stream.NewStyle()
	return a
}

func (a *app) handleOnConnect(client mqtt.Client) {
	logrus.WithField("broker", a.Config.Mqtt.URL).Info("Connected")
}

func (a *app) handleConnectionLost(client mqtt.Client, err error) {
	logrus.WithError(err).Warn("Connection lost")
}

func (a *app) readConfig(configPath string) error {
	f, err := os.Open(configPath)
	if os.IsNotExist(err) {
		logrus.WithField("config", configPath).Warn("Config file not found, using defaults")
		a.Config = stream.DefaultConfig()
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	a.Config, err = stream.ReadConfig(f)
	return err
}

func (a *app) connectMqtt() error {
	clientID := a.Config.Mqtt.ClientID
	if clientID == "" {
		clientID = "dashtx-" + uuid.NewString()
	}

	options := mqtt.NewClientOptions().
		AddBroker(a.Config.Mqtt.URL).
		SetClientID(clientID).
		SetUsername(a.Config.Mqtt.Username).
		SetPassword(a.Config.Mqtt.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetOnConnectHandler(a.handleOnConnect).
		SetConnectionLostHandler(a.handleConnectionLost)
	a.Client = mqtt.NewClient(options)

	if token := a.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	a.Streamer = stream.NewStreamer(a.Client, a.Config.Mqtt.Topics.Stream, a.Config.Mqtt.Qos)
	return nil
}

// sinks attaches the configured layer and returns every enabled sink.
func (a *app) sinks() (stream.MultiSink, error) {
	layer, err := stream.NewLineLayer(a.Config.Layer)
	if err != nil {
		return nil, err
	}
	a.Style.AddLayer(layer)

	sinks := stream.MultiSink{a.Style}
	if a.Streamer != nil {
		sinks = append(sinks, a.Streamer)
	}
	if a.Api != nil {
		sinks = append(sinks, a.Api)
	}
	return sinks, nil
}

func (a *app) run(ctx context.Context) error {
	if a.Config.Mqtt.Enabled {
		if err := a.connectMqtt(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
		defer a.Client.Disconnect(250)
	}

	errs := make(chan error, 2)
	if a.Config.Api.Enabled {
		a.Api = api.NewApi(a.Config.Api.Listen, a.Config.Api.StaticDir)
		go func() { errs <- a.Api.Serve(ctx) }()
	}

	sinks, err := a.sinks()
	if err != nil {
		return err
	}
	animation, err := a.Config.NewAnimation()
	if err != nil {
		return err
	}

	loop := stream.NewEventLoop()
	go loop.Run(ctx)

	animator := stream.NewAnimator(a.Config.Layer.ID, animation, sinks, loop)
	go func() { errs <- animator.Run(ctx, a.Config.Animation.Interval()) }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errs:
		return err
	}
}

func printCycle(w io.Writer, animation *stream.DashAnimation) {
	fmt.Fprintf(w, "dashSteps=%g gapSteps=%g\n", animation.DashSteps(), animation.GapSteps())
	for i := 0; i < animation.TotalSteps(); i++ {
		step, p := animation.Advance()
		fmt.Fprintf(w, "%3d  %.4f %.4f %.4f %.4f\n", step, p[0], p[1], p[2], p[3])
	}
}

func (a *app) preview(ctx context.Context) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		for {
			switch ev := screen.PollEvent().(type) {
			case nil:
				return
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
					cancel()
					return
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		}
	}()

	layer, err := stream.NewLineLayer(a.Config.Layer)
	if err != nil {
		return err
	}
	sink := preview.NewScreen(screen, layer.Colour, 4, 0)
	sink.Watch(layer.ID)

	animation, err := a.Config.NewAnimation()
	if err != nil {
		return err
	}

	loop := stream.NewEventLoop()
	go loop.Run(ctx)

	return stream.NewAnimator(layer.ID, animation, sink, loop).Run(ctx, a.Config.Animation.Interval())
}

//nolint:gochecknoglobals // Cobra flag bindings.
var (
	configPath string
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "dashtx",
		Short: "Animate the dash array of a map line layer and stream it to clients.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Stream dash patterns over MQTT and websockets",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp()
			if err := a.readConfig(configPath); err != nil {
				return err
			}
			logrus.Debugf("Config: %+v", a.Config)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx)
		},
	}

	patternCmd = &cobra.Command{
		Use:   "pattern",
		Short: "Print one full cycle of dash patterns",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp()
			if err := a.readConfig(configPath); err != nil {
				return err
			}
			animation, err := a.Config.NewAnimation()
			if err != nil {
				return err
			}
			printCycle(cmd.OutOrStdout(), animation)
			return nil
		},
	}

	previewCmd = &cobra.Command{
		Use:   "preview",
		Short: "Draw the animated line in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp()
			if err := a.readConfig(configPath); err != nil {
				return err
			}
			// Keep log lines off the drawn screen.
			logrus.SetOutput(io.Discard)
			return a.preview(cmd.Context())
		},
	}
)

//nolint:gochecknoinits // Cobra command wiring.
func init() {
	logrus.SetOutput(os.Stderr)
	mqtt.ERROR = log.New(logrus.StandardLogger().WriterLevel(logrus.ErrorLevel), "", 0)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "YAML config file.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(patternCmd)
	rootCmd.AddCommand(previewCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
