// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command wwsd is the World Wide Swarm coordination-core connector
// process: it wires an identity, a message bus, board/holon lifecycle
// machinery and a deliberation oracle into one process and accepts a
// single task injection on startup, printing the resulting artifact to
// stdout. Binding rpc.Connector to a real network transport and a
// persistent store is left to the deployment, per spec.md §1/§6.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/wws/board"
	"github.com/luxfi/wws/bus"
	"github.com/luxfi/wws/config"
	"github.com/luxfi/wws/holon"
	"github.com/luxfi/wws/identity"
	"github.com/luxfi/wws/ids"
	"github.com/luxfi/wws/metrics"
	"github.com/luxfi/wws/oracle"
	"github.com/luxfi/wws/protocol"
	"github.com/luxfi/wws/rpc"
	"github.com/luxfi/wws/store"
	"github.com/luxfi/wws/store/memstore"
	"github.com/luxfi/wws/utils/sampler"
	"github.com/luxfi/wws/wwslog"
)

func main() {
	var (
		preset       = flag.String("preset", "local", "parameter preset: local, testnet, mainnet")
		description  = flag.String("task", "", "task description to inject on startup")
		capabilities = flag.String("capabilities", "", "comma-separated required capabilities")
		complexity   = flag.Float64("complexity", 0.0, "estimated task complexity in [0,1]")
	)
	flag.Parse()

	if err := run(*preset, *description, *capabilities, *complexity); err != nil {
		fmt.Fprintln(os.Stderr, "wwsd:", err)
		os.Exit(1)
	}
}

func run(preset, description, capabilities string, complexity float64) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := parsePreset(preset)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}

	log := wwslog.NoOp()

	kp, err := identity.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generate connector identity: %w", err)
	}
	ident := identity.New(kp, identity.NewStaticResolver(nil))
	log.Info("connector identity ready")

	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	st := memstore.New()
	b := bus.NewLocalWithClockSkewTolerance(cfg.ClockSkewTolerance, time.Now)

	sup := holon.NewSupervisor(holon.Deps{
		Log:       log,
		Metrics:   m,
		Bus:       b,
		Store:     st,
		Oracle:    &oracle.DeterministicStub{SubtasksPerPlan: 3},
		Config:    cfg,
		FormBoard: boardFormer(b, ident, cfg, st),
	})
	conn := rpc.NewConnector(sup, st, ident)

	if description == "" {
		log.Info("no task supplied, idling until interrupted")
		<-ctx.Done()
		return nil
	}

	var caps []string
	if capabilities != "" {
		caps = strings.Split(capabilities, ",")
	}

	artifact, err := conn.Inject(ctx, description, caps, complexity, nil)
	if err != nil {
		return fmt.Errorf("inject task: %w", err)
	}

	status, err := conn.GetBoardStatus(ctx, artifact.TaskID)
	if err != nil {
		return fmt.Errorf("get board status: %w", err)
	}

	return printResult(artifact.TaskID, status.State, artifact.ContentBytes)
}

func parsePreset(name string) (config.Parameters, error) {
	switch name {
	case "", "local":
		return config.Local(), nil
	case "testnet":
		return config.Testnet(), nil
	case "mainnet":
		return config.Mainnet(), nil
	default:
		return config.Parameters{}, fmt.Errorf("unknown preset %q", name)
	}
}

// boardFormer closes over a live bus and this process's identity so
// holon.Supervisor can form boards (including recursive sub-holon boards)
// without depending on board.Form's own signature directly. A lone
// connector process has no peers to invite, so every formation here
// degenerates to a solo board after the acceptance window elapses — a
// deployment with multiple connector processes sharing a real bus gets
// genuine multi-member boards from the same board.Form call.
func boardFormer(b bus.Bus, ident *identity.Identity, cfg config.Parameters, st store.Store) holon.BoardFormer {
	return func(ctx context.Context, taskID ids.ID, invite protocol.BoardInvite, candidatePool []ids.NodeID) (*board.Board, error) {
		acceptCtx, cancel := context.WithTimeout(ctx, cfg.AcceptanceWindow)
		defer cancel()

		deps := board.Deps{Bus: b, Ident: ident, Log: wwslog.NoOp(), Rng: sampler.NewUniform(), Store: st}
		result, err := board.Form(acceptCtx, deps, taskID, invite, cfg.TargetBoardSize)
		if err != nil {
			return nil, err
		}
		return result.Board, nil
	}
}

func printResult(taskID ids.ID, state string, content []byte) error {
	out := struct {
		TaskID string `json:"task_id"`
		State  string `json:"state"`
		Result string `json:"result"`
	}{
		TaskID: taskID.String(),
		State:  state,
		Result: string(content),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
