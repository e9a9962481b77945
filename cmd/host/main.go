package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nightswarm/internal/host"
	"nightswarm/internal/logging"
	"nightswarm/internal/netclient"
	"nightswarm/internal/protocol"
	"nightswarm/internal/sim"
	"nightswarm/internal/snapshot"
	"nightswarm/internal/telemetry"
)

func main() {
	var (
		relayURL   string
		seed       int64
		tickRate   int
		sendEvery  int
		startDelay time.Duration
		jsonLog    bool
	)
	flag.StringVar(&relayURL, "relay", "ws://localhost:8080/ws", "relay websocket URL")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "world seed")
	flag.IntVar(&tickRate, "tick-rate", host.DefaultConfig().TickRate, "simulation ticks per second")
	flag.IntVar(&sendEvery, "send-every", snapshot.DefaultSchedulerConfig().SendEvery, "broadcast a snapshot every Nth tick")
	flag.DurationVar(&startDelay, "start-delay", 3*time.Second, "how long to wait for guests before starting")
	flag.BoolVar(&jsonLog, "json-log", false, "emit lifecycle events as JSON lines")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	var publisher logging.Publisher = logging.NewConsolePublisher(os.Stdout)
	if jsonLog {
		publisher = logging.NewJSONPublisher(os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := netclient.Dial(ctx, relayURL, netclient.DefaultConfig(), telemetry.WrapLogger(logger))
	if err != nil {
		logger.Fatalf("host: dial relay: %v", err)
	}
	defer client.Close()

	if client.Role() != protocol.RoleHost {
		logger.Fatalf("host: relay assigned role %q; another host is already connected", client.Role())
	}
	logger.Printf("host: connected as slot %d, seed %d", client.Slot(), seed)

	session := host.NewSession(client, host.Config{
		TickRate:  tickRate,
		Seed:      seed,
		Scheduler: snapshot.SchedulerConfig{SendEvery: sendEvery},
	}, host.ChooserFunc(func(choices []sim.Upgrade) int {
		// Headless host always takes the first candidate.
		return 0
	}), telemetry.WrapLogger(logger), publisher)

	// Let guests dial in; roster frames from the relay accumulate in the
	// session inbox until the match starts.
	wait := time.NewTimer(startDelay)
	defer wait.Stop()
	pump := time.NewTicker(100 * time.Millisecond)
	defer pump.Stop()
waiting:
	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Closed():
			logger.Fatalf("host: relay connection closed before start")
		case now := <-pump.C:
			session.Tick(now, 0)
		case <-wait.C:
			break waiting
		}
	}

	roster := session.Roster()
	if err := session.Start(roster); err != nil {
		logger.Fatalf("host: start: %v", err)
	}
	logger.Printf("host: match started with %d players", len(roster))

	if err := session.RunLoop(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("host: %v", err)
	}
}
