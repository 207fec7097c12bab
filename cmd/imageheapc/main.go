// ABOUTME: CLI driver: loads a config and a host-graph fixture, runs a
// ABOUTME: build, and prints the diagnostics the global options request.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/kuaiwei/imageheap"
	"github.com/kuaiwei/imageheap/diagnostics"
	"github.com/kuaiwei/imageheap/histogram"
	"github.com/kuaiwei/imageheap/hostfixture"
	"github.com/kuaiwei/imageheap/layout"
	"github.com/kuaiwei/imageheap/options"
)

var (
	configPath = flag.String("config", "", "path to a TOML options document; defaults are used if empty")
	fixturePath = flag.String("fixture", "", "path to a JSON host-graph fixture (required)")
	explain = flag.String("explain", "", "print the reachability chain for the fixture object with this id, after discovery and interning")
	dryRun = flag.Bool("dry-run", false, "report the run as a dry run (the CLI runs discovery and interning only and never runs writeHeap, with or without this flag)")
	verbose = flag.Bool("v", false, "enable debug logging")
)

func main() {
	flag.Parse()
	if *fixturePath == "" {
		log.Fatal("imageheapc: -fixture is required")
	}

	logger := newLogger(*verbose)
	defer logger.Sync()
	sugar := logger.Sugar()

	if err := run(sugar); err != nil {
		sugar.Fatal(err)
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level.SetLevel(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		log.Fatalf("imageheapc: building logger: %v", err)
	}
	return logger
}

func run(log *zap.SugaredLogger) error {
	opts := options.Default()
	if *configPath != "" {
		loaded, err := options.Load(*configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		opts = loaded
	}

	fx, err := hostfixture.Load(*fixturePath)
	if err != nil {
		return fmt.Errorf("loading fixture: %w", err)
	}

	oracle := &layout.Oracle{RefWidth: 8, ObjectAlignment: 8, HubOffsetVal: 0}
	builder := imageheap.New(oracle, opts, imageheap.Collaborators{
		Universe: fx,
		Hash:     fx,
		Word:     fx,
		Strings:  fx,
		Arrays:   fx,
		Roots:    fx,
		Interned: fx,
	}, log)

	if err := builder.AddInitialObjects(); err != nil {
		return fmt.Errorf("addInitialObjects: %w", err)
	}
	if err := builder.AddTrailingObjects(); err != nil {
		return fmt.Errorf("addTrailingObjects: %w", err)
	}

	if *explain != "" {
		explainObject(builder, fx, *explain, log)
	}

	if opts.Heap.PrintHeapHistogram {
		histogram.LogTypeHistogram(log, histogram.BuildTypeHistogram(builder.Heap))
	}
	if opts.Heap.PrintImageHeapPartitionSizes {
		histogram.LogPartitionReport(log, histogram.BuildPartitionReport(builder.Heap))
	}

	if *dryRun {
		log.Infof("dry run complete: %d objects admitted", builder.Heap.NumObjects())
		return nil
	}

	log.Infof("admitted %d objects; writeHeap requires real output buffers, skipping in CLI mode", builder.Heap.NumObjects())
	return nil
}

func explainObject(builder *imageheap.Builder, fx *hostfixture.Fixture, id string, log *zap.SugaredLogger) {
	host := fx.Handle(id)
	d, ok := builder.ObjectInfo(host)
	if !ok {
		log.Warnf("explain: %s was never admitted", id)
		return
	}
	fmt.Fprintf(os.Stdout, "%s (%s) size=%d hash=%d\n", id, d.Type.Name(), d.Size, d.IdentityHash)
	fmt.Fprint(os.Stdout, diagnostics.Format(d))
}
