package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nightswarm/internal/guest"
	"nightswarm/internal/netclient"
	"nightswarm/internal/protocol"
	"nightswarm/internal/telemetry"
)

func main() {
	var (
		relayURL string
		fps      int
	)
	flag.StringVar(&relayURL, "relay", "ws://localhost:8080/ws", "relay websocket URL")
	flag.IntVar(&fps, "fps", 30, "render frames per second")
	flag.Parse()
	if fps <= 0 {
		fps = 30
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := netclient.Dial(ctx, relayURL, netclient.DefaultConfig(), telemetry.WrapLogger(logger))
	if err != nil {
		logger.Fatalf("guest: dial relay: %v", err)
	}
	defer client.Close()

	if client.Role() != protocol.RoleGuest {
		logger.Fatalf("guest: relay assigned role %q", client.Role())
	}
	logger.Printf("guest: connected as slot %d", client.Slot())

	session := guest.NewSession(client, nil, guest.ChooserFunc(func(choices []protocol.UpgradeChoice) int {
		// Headless guest always takes the first candidate.
		return 0
	}), telemetry.WrapLogger(logger))

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Closed():
			logger.Printf("guest: connection closed")
			return
		case now := <-ticker.C:
			for _, ev := range session.Frame(now, 0, 0) {
				switch ev.Kind {
				case guest.EventGameStarted:
					logger.Printf("guest: match started, %d players", len(session.Roster()))
				case guest.EventBossWave:
					logger.Printf("guest: boss wave %d", ev.Wave)
				case guest.EventBuffPickup:
					logger.Printf("guest: slot %d picked up %s", ev.Slot, ev.Buff)
				case guest.EventUpgradeOffered:
					logger.Printf("guest: upgrade offer received")
				case guest.EventGameOver:
					logger.Printf("guest: game over")
				case guest.EventConnectionLost:
					logger.Printf("guest: host left, session over")
					return
				}
			}
		}
	}
}
