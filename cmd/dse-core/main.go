// Command dse-core runs a co-simulation stack: one SimBus coordinator and
// one Adapter/model per Stack.spec.models[] entry, wired over in-process
// Loopback endpoints and driven for a configured number of steps (§6).
// Every channel round-trips through a Marshaller (§4.6); a channel backed
// by a binary SignalGroup and a matching Network document additionally
// drives a pdu.Driver (§4.8) over that channel's "frame" signal.
//
// Loading a model's actual step function means dlopen-ing a platform
// dynamic library (Stack.spec.models[].model.mcl / runtime.dynlib); that
// FFI boundary has no Go-idiomatic counterpart anywhere in this corpus
// and is out of scope here (see DESIGN.md) — dse-core instead runs each
// model as a passthrough participant that only rendezvouses on the bus
// and, for PDU-backed channels, only encodes/decodes network frames.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/boschglobal/dse.modelc-sub000/internal/adapter"
	"github.com/boschglobal/dse.modelc-sub000/internal/benchmark"
	"github.com/boschglobal/dse.modelc-sub000/internal/config"
	"github.com/boschglobal/dse.modelc-sub000/internal/endpoint"
	"github.com/boschglobal/dse.modelc-sub000/internal/hk"
	"github.com/boschglobal/dse.modelc-sub000/internal/idgen"
	"github.com/boschglobal/dse.modelc-sub000/internal/marshal"
	"github.com/boschglobal/dse.modelc-sub000/internal/nlog"
	"github.com/boschglobal/dse.modelc-sub000/internal/pdu"
	"github.com/boschglobal/dse.modelc-sub000/internal/signal"
	"github.com/boschglobal/dse.modelc-sub000/internal/simbus"
	"github.com/boschglobal/dse.modelc-sub000/internal/trace"
	"github.com/boschglobal/dse.modelc-sub000/internal/xerr"
)

type flags struct {
	name      string
	transport string
	uri       string
	stepSize  float64
	endTime   float64
	uid       uint32
	timeout   float64
	logger    int
	path      string
	steps     int
}

func parseFlags(args []string) (*flags, []string) {
	f := &flags{}
	fs := flag.NewFlagSet("dse-core", flag.ExitOnError)
	fs.StringVar(&f.name, "name", "", "simulation instance name")
	fs.StringVar(&f.transport, "transport", envOr("SIMBUS_TRANSPORT", "loopback"), "transport backend")
	fs.StringVar(&f.uri, "uri", os.Getenv("SIMBUS_URI"), "transport URI (only loopback is implemented)")
	fs.Float64Var(&f.stepSize, "stepsize", 0.0005, "simulation step size, seconds")
	fs.Float64Var(&f.endTime, "endtime", 0, "simulation end time, seconds (0: run --steps instead)")
	uidFlag := fs.Uint("uid", 0, "override model uid (0: derive from Stack YAML / name)")
	fs.Float64Var(&f.timeout, "timeout", 60, "retry budget, seconds (parsed but not applied; register/index retries are bounded by attempt count)")
	fs.IntVar(&f.logger, "logger", envLogLevel(), "log level, 0-6 (default from SIMBUS_LOGLEVEL if set)")
	fs.StringVar(&f.path, "path", ".", "base path to resolve relative YAML file arguments")
	fs.IntVar(&f.steps, "steps", 5, "number of steps to run when --endtime is 0")
	fs.Parse(args)
	f.uid = uint32(*uidFlag)
	return f, fs.Args()
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envLogLevel() int {
	if v := os.Getenv("SIMBUS_LOGLEVEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 5 // nlog's default info-and-above level
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	f, files := parseFlags(args)
	nlog.SetLevel(f.logger)

	if f.transport != "loopback" {
		nlog.Errorf("dse-core: transport %q is not implemented (only loopback)", f.transport)
		return 1
	}

	stack, networks, signalGroups, err := loadDocuments(files, f.path)
	if err != nil {
		nlog.Errorf("dse-core: %v", err)
		return 1
	}

	steps := f.steps
	if f.endTime > 0 && f.stepSize > 0 {
		steps = int(f.endTime/f.stepSize + 0.5)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigc := make(chan os.Signal, 1)
	ossignal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		cancel()
	}()
	defer cancel()

	rc, err := runStack(ctx, stack, networks, signalGroups, f, steps)
	if err != nil {
		if xerr.IsCanceled(err) {
			nlog.Warningln("dse-core: interrupted")
			return int(syscall.ECANCELED)
		}
		if xerr.IsTimeout(err) {
			nlog.Errorf("dse-core: %v", err)
			return int(syscall.ETIME)
		}
		nlog.Errorf("dse-core: %v", err)
		return 1
	}
	return rc
}

func resolvePath(name, basePath string) string {
	if len(name) == 0 || os.IsPathSeparator(name[0]) {
		return name
	}
	return basePath + string(os.PathSeparator) + name
}

// loadDocuments reads every positional file and routes it by Kind: the
// first Stack document found, every Network keyed by metadata.name, and
// every SignalGroup keyed by metadata.name (§6's file discovery; a Stack
// is required, Networks/SignalGroups are optional companions).
func loadDocuments(files []string, basePath string) (*config.Stack, map[string]*config.Network, map[string]*config.SignalGroup, error) {
	var stack *config.Stack
	networks := make(map[string]*config.Network)
	signalGroups := make(map[string]*config.SignalGroup)

	for _, name := range files {
		p := resolvePath(name, basePath)
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("read %s: %w", p, err)
		}
		h, _, err := config.ParseHeader(bytes.NewReader(b))
		if err != nil {
			return nil, nil, nil, err
		}
		switch h.Kind {
		case config.KindStack:
			if stack == nil {
				s, err := config.ParseStack(b)
				if err != nil {
					return nil, nil, nil, err
				}
				stack = s
			}
		case config.KindNetwork:
			n, err := config.ParseNetwork(b)
			if err != nil {
				return nil, nil, nil, err
			}
			networks[n.Metadata.Name] = n
		case config.KindSignalGroup:
			sg, err := config.ParseSignalGroup(b)
			if err != nil {
				return nil, nil, nil, err
			}
			signalGroups[sg.Metadata.Name] = sg
		}
	}
	if stack == nil {
		return nil, nil, nil, fmt.Errorf("no Stack document found among %v", files)
	}
	return stack, networks, signalGroups, nil
}

// pduBinding pairs a channel name with the Driver (§4.8) driving its
// "frame" binary signal.
type pduBinding struct {
	channel string
	driver  *pdu.Driver
}

type participant struct {
	uid     uint32
	ad      *adapter.Adapter
	model   *signal.Model
	chans   []string
	drivers []pduBinding
}

// runStack builds a Coordinator and one Adapter per model, then runs the
// simulation for the given number of steps, returning the session rc
// (§7: "nonzero return from a step function is ORed into a session rc").
func runStack(ctx context.Context, stack *config.Stack, networks map[string]*config.Network, signalGroups map[string]*config.SignalGroup, f *flags, steps int) (int, error) {
	coord := simbus.NewCoordinator(0)

	var participants []participant
	var assignments []simbus.Assignment
	busEndpoints := make(map[uint32]*endpoint.Endpoint) // modelUID -> the bus-side Endpoint peered with that model

	// The push router's broadcast target for a model is the SAME bus-side
	// Endpoint its receive loop already uses: Loopback is bidirectional, so
	// sending the resolved Notify back on epBus reaches the model's peer
	// modelSide without a second connection.
	router := endpoint.NewPushRouter(func(modelUID uint32) (*endpoint.Endpoint, error) {
		ep, ok := busEndpoints[modelUID]
		if !ok {
			return nil, fmt.Errorf("dse-core: no bus endpoint registered for model %d", modelUID)
		}
		return ep, nil
	})
	server := simbus.NewServer(coord, router)

	bc := &benchmark.Counters{} // session-level aggregate (§4.9); the original profiles per model instance

	hkRunner := hk.New()
	hkRunner.Reg("benchmark-flush", 2*time.Second, func() time.Duration {
		nlog.Infof("dse-core: benchmark execute=%.0fns processing=%.0fns network=%.0fns bus_wait=%.0fns",
			bc.Execute.MeanNs(), bc.Processing.MeanNs(), bc.Network.MeanNs(), bc.BusWait.MeanNs())
		return 0
	})
	go hkRunner.Run()
	defer hkRunner.Stop()

	for _, sm := range stack.Spec.Models {
		uid := modelUID(sm, f.uid)
		model := signal.NewModel(sm.Name)
		model.UID = uid

		busSide, modelSide := endpoint.NewLoopbackPair()
		epBus := endpoint.New(busSide)
		epModel := endpoint.New(modelSide)

		ad := adapter.New(model, epModel)
		var chans []string
		var drivers []pduBinding
		for _, c := range sm.Channels {
			chName := channelName(c)
			chans = append(chans, chName)

			sg, ok := signalGroups[chName]
			if !ok {
				continue
			}
			if sg.VectorType() == config.VectorTypeBinary {
				netDoc, ok := networks[chName]
				if !ok {
					continue // binary SignalGroup with no matching Network: plain binary passthrough
				}
				net, err := pdu.Parse(netDoc)
				if err != nil {
					return 1, fmt.Errorf("dse-core: network %q: %w", chName, err)
				}
				driver := pdu.NewDriver(net, pdu.NewScriptRegistry(), model.Channel(chName), ad.Marshaller(chName))
				driver.Codec().Config("swc_id", fmt.Sprintf("%d", idgen.SignalUID(chName)))
				clock := func() float64 { return model.Time }
				trace.Configure(driver.Codec(), sm.Name, clock, false)
				drivers = append(drivers, pduBinding{channel: chName, driver: driver})
				continue
			}
			for _, se := range sg.Spec.Signals {
				if se.Factor == nil && se.Offset == nil {
					continue
				}
				ad.SetTransform(chName, se.Signal, marshal.Transform{
					Factor: orDefault(se.Factor, 1),
					Offset: orDefault(se.Offset, 0),
				})
			}
		}

		participants = append(participants, participant{uid: uid, ad: ad, model: model, chans: chans, drivers: drivers})
		assignments = append(assignments, simbus.Assignment{ModelUID: uid, Ep: epBus})
		busEndpoints[uid] = epBus
	}

	serveCtx, cancelServe := context.WithCancel(ctx)
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ServeAll(serveCtx, assignments) }()

	rc := 0
	for _, p := range participants {
		if err := p.ad.Register(ctx, p.chans, f.stepSize); err != nil {
			cancelServe()
			return 1, err
		}
		if err := p.ad.Index(ctx, p.chans); err != nil {
			cancelServe()
			return 1, err
		}
		if err := p.ad.Read(ctx, p.chans); err != nil {
			cancelServe()
			return 1, err
		}
	}

	for step := 0; step < steps; step++ {
		select {
		case <-ctx.Done():
			cancelServe()
			return rc, xerr.ErrCanceled
		default:
		}
		for _, p := range participants {
			wait := bc.StartBusWait()
			_, _, err := p.ad.ReadyLoopOnce(ctx, p.chans)
			wait.Stop()
			if err != nil {
				cancelServe()
				return 1, err
			}

			exec := bc.StartExecute()
			// A real step function would run here; dse-core's models are
			// bus-rendezvous-only passthroughs (see package comment).
			exec.Stop()

			proc := bc.StartProcessing()
			for _, b := range p.drivers {
				if err := b.driver.Step(step, p.ad.ModelBin(b.channel)); err != nil {
					proc.Stop()
					cancelServe()
					return 1, fmt.Errorf("dse-core: pdu driver %q: %w", b.channel, err)
				}
			}
			proc.Stop()
		}
	}

	for _, p := range participants {
		_ = p.ad.Exit(p.chans)
	}
	cancelServe()
	<-serveErr
	nlog.Infof("dse-core: completed %d steps, bus_time=%.6f", steps, coord.BusTime())
	return rc, nil
}

func modelUID(sm config.StackModel, override uint32) uint32 {
	if override != 0 {
		return override
	}
	if sm.UID != nil {
		return *sm.UID
	}
	return idgen.SignalUID(sm.Name)
}

func channelName(c config.ChannelRef) string {
	if c.Name != "" {
		return c.Name
	}
	return c.Alias
}

func orDefault(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
