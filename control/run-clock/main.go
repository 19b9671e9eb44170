// Command run-clock runs the clock on a host with GPIO lines wired to the clock board, or on a
// simulated board.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/jrockway/segment-clock/control/clock"
	"github.com/jrockway/segment-clock/control/config"
	"github.com/jrockway/segment-clock/control/ds1307"
	"github.com/jrockway/segment-clock/control/irq"
	"github.com/jrockway/segment-clock/control/pins"
	"github.com/jrockway/segment-clock/control/screen"
	"github.com/jrockway/segment-clock/control/sim"
	"github.com/jrockway/segment-clock/control/tm1640"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stianeikeland/go-rpio"
	"golang.org/x/net/trace"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
	"periph.io/x/host/v3"
)

var (
	configFile = flag.String("config", "", "yaml file describing which gpio lines the board is on; empty for the default wiring")
	bind       = flag.String("bind", ":8080", "address to bind for debug/metrics server")
	backend    = flag.String("gpio", "periph", "gpio backend to use: periph or rpio")
	simulate   = flag.Bool("simulate", false, "run against a simulated board instead of real gpio lines")
	keyboard   = flag.Bool("keyboard", false, "with -simulate, show the display in the terminal and read buttons from the keyboard")
	logFile    = flag.String("logfile", "", "if set, log to this file (rotated) instead of stderr")
	selfTest   = flag.Bool("selftest", false, "light every segment before starting, as if the set button was held at power on")
)

// board is the clock's hardware, however it's attached.
type board struct {
	rtcSCL, rtcSDA pins.Line
	data           pins.Line
	clocks         [tm1640.NumChips]pins.Line
	buttons        irq.Buttons
}

type opener struct {
	line   func(name string) (pins.Line, error)
	button func(name string) (pins.Input, error)
}

type namedLine struct {
	dst  *pins.Line
	name string
}

type namedButton struct {
	dst  *pins.Input
	name string
}

func (o opener) open(cfg *config.Config) (*board, error) {
	b := new(board)
	lines := []namedLine{
		{&b.rtcSCL, cfg.RTC.SCL},
		{&b.rtcSDA, cfg.RTC.SDA},
		{&b.data, cfg.Display.Data},
	}
	for i := range b.clocks {
		lines = append(lines, namedLine{&b.clocks[i], cfg.Display.Clocks[i]})
	}
	buttons := []namedButton{
		{&b.buttons.Set, cfg.Buttons.Set},
		{&b.buttons.Inc, cfg.Buttons.Inc},
		{&b.buttons.Dec, cfg.Buttons.Dec},
	}

	var err error
	for _, l := range lines {
		if *l.dst, err = o.line(l.name); err != nil {
			return nil, fmt.Errorf("open line: %w", err)
		}
	}
	for _, btn := range buttons {
		if *btn.dst, err = o.button(btn.name); err != nil {
			return nil, fmt.Errorf("open button: %w", err)
		}
	}
	// Release everything until the drivers take over.
	for _, l := range lines {
		(*l.dst).Tristate()
	}
	return b, nil
}

func openSimulated(sb *sim.Board, latch *pins.Latch) (*board, error) {
	b := new(board)
	scl, sda := sb.RTCPins()
	b.rtcSCL, b.rtcSDA = pins.Periph(scl, latch), pins.Periph(sda, latch)
	data, clocks := sb.DisplayPins()
	b.data = pins.Periph(data, latch)
	for i, c := range clocks {
		b.clocks[i] = pins.Periph(c, latch)
	}
	var err error
	if b.buttons.Set, err = pins.PeriphButton(sb.Set); err != nil {
		return nil, err
	}
	if b.buttons.Inc, err = pins.PeriphButton(sb.Inc); err != nil {
		return nil, err
	}
	if b.buttons.Dec, err = pins.PeriphButton(sb.Dec); err != nil {
		return nil, err
	}
	return b, nil
}

func main() {
	flag.Parse()

	if *logFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   *logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	} else if *keyboard {
		log.Fatalf("-keyboard takes over the terminal; use -logfile to send the logs somewhere")
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			log.Fatalf("load config: %v", err)
		}
	}

	var latch pins.Latch
	var hw *board
	var simBoard *sim.Board
	var err error
	switch {
	case *simulate:
		simBoard = sim.NewBoard(clockwork.NewRealClock())
		hw, err = openSimulated(simBoard, &latch)
	case *backend == "periph":
		if _, err := host.Init(); err != nil {
			log.Fatalf("init periph.io: %v", err)
		}
		hw, err = opener{
			line:   func(name string) (pins.Line, error) { return pins.ByName(name, &latch) },
			button: pins.ButtonByName,
		}.open(cfg)
	case *backend == "rpio":
		if err := rpio.Open(); err != nil {
			log.Fatalf("open /dev/gpiomem: %v", err)
		}
		defer rpio.Close()
		hw, err = opener{line: pins.RpioByName, button: pins.RpioButton}.open(cfg)
	default:
		log.Fatalf("unknown gpio backend %q", *backend)
	}
	if err != nil {
		log.Fatalf("set up board: %v", err)
	}
	if *keyboard && simBoard == nil {
		log.Fatalf("-keyboard only works with -simulate")
	}

	scr := screen.New(tm1640.New(hw.data, hw.clocks))
	rtc := ds1307.New(hw.rtcSCL, hw.rtcSDA)
	irqs := irq.New(clockwork.NewRealClock(), cfg.Timing.Tick, cfg.Timing.Debounce, hw.buttons)
	controller := clock.New(rtc, scr, irqs, &latch)

	// Holding set at power on runs the self test.
	controller.Boot(*selfTest || !hw.buttons.Set.Read())
	if err := latch.Err(); err != nil {
		log.Fatalf("boot: %v", err)
	}
	log.Printf("started at %v", controller.Time())

	r := mux.NewRouter()
	r.Handle("/", http.RedirectHandler("/display.png", http.StatusFound))
	r.Handle("/display.png", scr).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/debug/requests", trace.Traces)
	r.HandleFunc("/debug/events", trace.Events)
	httpServer := &http.Server{Addr: *bind, Handler: r}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	eg, ctx := errgroup.WithContext(sigCtx)
	eg.Go(func() error {
		log.Printf("http server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		tctx, c := context.WithTimeout(context.Background(), time.Second)
		defer c()
		return httpServer.Shutdown(tctx)
	})
	eg.Go(func() error { return irqs.Run(ctx) })
	eg.Go(func() error { return controller.Run(ctx) })
	if *keyboard {
		t := &sim.Terminal{Board: simBoard, Hold: 100 * time.Millisecond, Refresh: 50 * time.Millisecond}
		eg.Go(func() error { return t.Run(ctx) })
	}

	err = eg.Wait()
	// Nothing else is touching the display now.
	scr.Clear()
	scr.Show()
	switch {
	case errors.Is(err, sim.ErrQuit), sigCtx.Err() != nil:
		log.Printf("shutting down")
	default:
		log.Printf("clock died: %v", err)
		os.Exit(1)
	}
}
