// Command rgbkbdd is the command-dispatcher daemon: it loads a YAML
// device bootstrap file, attaches a line.Processor to each configured
// device, and accepts line-oriented control connections for it.
//
// Flag handling follows kissutil.go's pflag usage; the per-device
// accept loop follows server_connect_listen_thread's net.Listen/Accept
// shape, one TCP port per device instead of one shared AGW port.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/rgbkbdd/corectl/internal/config"
	"github.com/rgbkbdd/corectl/internal/device"
	"github.com/rgbkbdd/corectl/internal/gpioreset"
	"github.com/rgbkbdd/corectl/internal/hotplug"
	"github.com/rgbkbdd/corectl/internal/line"
	"github.com/rgbkbdd/corectl/internal/logging"
	"github.com/rgbkbdd/corectl/internal/notify"
	"github.com/rgbkbdd/corectl/internal/vtable"

	applog "github.com/charmbracelet/log"
)

func main() {
	var (
		configPath    = pflag.StringP("config", "c", "", "Path to the device bootstrap YAML file. Searched in the default locations if unset.")
		debug         = pflag.BoolP("debug", "d", false, "Enable debug logging and per-key LED-encounter tracking.")
		jsonLog       = pflag.Bool("json", false, "Emit structured logs as JSON instead of text.")
		basePort      = pflag.IntP("listen", "l", 8801, "Base TCP port for per-device control sockets; device N listens on listen+N.")
		referenceHost = pflag.Bool("reference-host", true, "Run with the reference GUI-host vocabulary enabled (LAYOUT; ACCEL/SCROLLSPEED also need --legacy-host).")
		legacyHost    = pflag.Bool("legacy-host", false, "Run with the legacy-only vocabulary enabled (ACCEL/SCROLLSPEED).")
		help          = pflag.Bool("help", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - USB RGB keyboard/mouse command dispatcher daemon.\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	log := logging.New(logging.Options{Debug: *debug, JSON: *jsonLog})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("loading config", "err", err)
		os.Exit(1)
	}

	var tsFormat *logging.TimestampFormatter
	if cfg.LogTimestampFormat != "" {
		tsFormat, err = logging.NewTimestampFormatter(cfg.LogTimestampFormat)
		if err != nil {
			log.Warn("ignoring log_timestamp_format", "err", err)
		} else {
			log.Debug("using custom timestamp format", "rendered_now", tsFormat.Format(time.Now()))
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var gpioLines []*gpioreset.Line
	defer func() {
		for _, l := range gpioLines {
			l.Close()
		}
	}()

	for i, dp := range cfg.Devices {
		d := device.NewDevice(dp.FeatureBits(), dp.DeviceKind(), vtable.NewFake())
		if rate, ok := device.ParsePollRate(dp.MaxPollRate); ok {
			d.MaxPollRate = rate
		}

		p := line.New(d, *referenceHost, *legacyHost, logging.ForDevice(log, dp.Name))
		p.Debug = *debug
		p.Timestamp = tsFormat

		if dp.GPIOResetChip != "" {
			gpio, err := gpioreset.Open(dp.GPIOResetChip, dp.GPIOResetLine)
			if err != nil {
				log.Warn("gpio reset line unavailable", "device", dp.Name, "err", err)
			} else {
				gpioLines = append(gpioLines, gpio)
				p.SetGPIO(gpio)
			}
		}

		if dp.NotifyDir != "" {
			p.SetNotifyRouter(notify.NewRouter(), notifyOpener(dp.NotifyDir, dp.NotifyKind))
		}

		port := *basePort + i
		go serveDevice(ctx, p, dp.Name, port, log)
		log.Info("device registered", "name", dp.Name, "kind", dp.Kind, "port", port)
	}

	src := hotplug.NewUdevSource("usb")
	go func() {
		err := hotplug.Watch(ctx, src, func(ev hotplug.Event) {
			log.Info("hotplug event", "action", ev.Action, "devpath", ev.DevPath)
		})
		if err != nil && ctx.Err() == nil {
			log.Error("hotplug watcher exited", "err", err)
		}
	}()

	log.Info("rgbkbdd running", "devices", len(cfg.Devices))
	<-ctx.Done()
	log.Info("shutting down")
}

// notifyOpener resolves a notification channel number to the node an
// external collaborator is expected to have already created at
// dir/ch<N>, and opens it with the configured kind: "tty" for a
// real/pseudo-terminal device via pkg/term (the serial_port_open
// idiom), or the "fifo" default for a named pipe via a plain file
// open.
func notifyOpener(dir, kind string) func(n int) (notify.Sink, error) {
	return func(n int) (notify.Sink, error) {
		path := filepath.Join(dir, fmt.Sprintf("ch%d", n))
		if kind == "tty" {
			return notify.OpenNode(path)
		}
		return notify.OpenFile(path)
	}
}

// serveDevice accepts control connections for one device and feeds
// each line it reads into p.Run, one connection at a time: the mirror
// of server_connect_listen_thread's accept loop, scaled down from a
// multi-client AGW server to a single-client control socket per
// device.
func serveDevice(ctx context.Context, p *line.Processor, name string, port int, log *applog.Logger) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		log.Error("listen failed", "device", name, "port", port, "err", err)
		return
	}
	defer listener.Close()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("accept failed", "device", name, "err", err)
			continue
		}

		log.Info("control connection attached", "device", name, "remote", conn.RemoteAddr())
		handleConn(conn, p, name, log)
	}
}

func handleConn(conn net.Conn, p *line.Processor, name string, log *applog.Logger) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if err := p.Run(scanner.Text()); err != nil && err != line.ErrAborted {
			log.Error("line processing failed", "device", name, "err", err)
		}
	}
}
