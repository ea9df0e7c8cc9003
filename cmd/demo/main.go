// Command demo runs a full allocation period in a single process against
// the in-memory mock engine.
//
// It registers two regions, opens a period, submits one encrypted request
// per region, triggers the reveal, delivers the engine's answer, and prints
// each manager's decrypted allocation together with the event history.
//
//	go run ./cmd/demo
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/flashbots/aquanet/coordinator"
	"github.com/flashbots/aquanet/crypto"
	"github.com/flashbots/aquanet/engine"
	"github.com/flashbots/aquanet/protocol"
	"github.com/flashbots/aquanet/services"
)

const totalResource = 100_000

func main() {
	if err := run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

type demoRegion struct {
	id      protocol.RegionID
	name    string
	manager protocol.Principal
	key     crypto.PrivateKey
}

func run() error {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	mock, err := engine.NewMock()
	if err != nil {
		return err
	}

	authorityPub, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	authority := protocol.Principal(authorityPub.String())

	coord, err := coordinator.New(&coordinator.Config{
		Authority:       authority,
		Engine:          mock,
		EnginePrincipal: mock.Principal(),
		Verifier:        protocol.Ed25519Verifier{},
		Settlement:      services.NoopSettlement{},
		Log:             log,
	})
	if err != nil {
		return err
	}

	regions := []*demoRegion{
		{name: "north-basin"},
		{name: "south-valley"},
	}
	for i, region := range regions {
		pub, priv, err := crypto.GenerateKeyPair()
		if err != nil {
			return err
		}
		region.manager = protocol.Principal(pub.String())
		region.key = priv

		region.id, err = coord.RegisterRegion(authority, region.name, uint8(5+i), region.manager)
		if err != nil {
			return err
		}
		fmt.Printf("registered region %d (%s)\n", region.id, region.name)
	}

	periodID, err := coord.StartPeriod(ctx, authority, totalResource, 24)
	if err != nil {
		return err
	}
	fmt.Printf("period %d open with %d units encrypted\n", periodID, totalResource)

	for i, region := range regions {
		amount := uint64(10_000 * (i + 1))
		score := uint8(40 + 20*i)
		if err := coord.SubmitRequest(ctx, region.manager, periodID, region.id, amount, score); err != nil {
			return err
		}
		fmt.Printf("region %d requested %d units (score %d)\n", region.id, amount, score)
	}

	correlation, err := coord.RequestDistribution(ctx, authority, periodID)
	if err != nil {
		return err
	}
	fmt.Printf("reveal requested, correlation %s\n", correlation)

	// The mock answers synchronously; a real engine calls back minutes or
	// hours later.
	if err := mock.Deliver(ctx, correlation, coord); err != nil {
		return err
	}

	for _, region := range regions {
		state, err := coord.Region(region.id)
		if err != nil {
			return err
		}
		allocation, err := mock.Read(state.LockedAllocation, region.manager)
		if err != nil {
			return err
		}
		fmt.Printf("region %d allocated %d units (handle %s)\n", region.id, allocation, state.LockedAllocation)
	}

	fmt.Println("\nevent history:")
	for _, ev := range coord.Events(0) {
		fmt.Printf("  %3d %-24s region=%d period=%d\n", ev.Seq, ev.Type, ev.Region, ev.Period)
	}
	return nil
}
