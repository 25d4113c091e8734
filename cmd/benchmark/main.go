package main

import (
	"context"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/delaneyj/unitgraph/observed"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	widthKey      = "width"
	depthKey      = "depth"
	itemsKey      = "items"
	itersKey      = "iters"
	configKey     = "config"
	scenarioKey   = "scenario"
	cpuProfileKey = "cpuprofile"
	quietKey      = "quiet"
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Measure binding propagation, rebinding, list reconciliation and event dispatch",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  widthKey,
				Usage: "Number of bindings or listeners; replaces the configured widths",
			},
			&cli.UintFlag{
				Name:  depthKey,
				Usage: "Path length for binding scenarios; replaces the configured depths",
			},
			&cli.UintFlag{
				Name:  itemsKey,
				Usage: "List size for the reconcile scenario; replaces the configured sizes",
			},
			&cli.UintFlag{
				Name:  itersKey,
				Usage: "Measured iterations per case",
				Value: 100,
			},
			&cli.StringFlag{
				Name:  configKey,
				Usage: "TOML file with benchmark sizes",
			},
			&cli.StringSliceFlag{
				Name:  scenarioKey,
				Usage: "Scenarios to run (propagate, rebind, reconcile, emit)",
			},
			&cli.StringFlag{
				Name:  cpuProfileKey,
				Usage: "Write a CPU profile to this file",
			},
			&cli.BoolFlag{
				Name:  quietKey,
				Usage: "Only print the summary table",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()
	observed.SetLogger(logger)
	sugar := logger.Sugar()

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	if path := cmd.String(cpuProfileKey); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	start := time.Now()
	sugar.Infof("starting benchmark, %d iterations per case", cfg.Iters)
	defer func() {
		sugar.Infof("benchmark finished in %v", time.Since(start))
	}()

	sugar.Infof("warming up")
	for _, s := range cfg.scenarios() {
		s.run(cfg.warmup())
	}

	var all []result
	for _, s := range cfg.scenarios() {
		if err := ctx.Err(); err != nil {
			return err
		}
		sugar.Infof("running %s", s.name)
		results := s.run(cfg)
		if !cmd.Bool(quietKey) {
			renderScenario(os.Stdout, s.title, results)
		}
		all = append(all, results...)
	}
	renderSummary(os.Stdout, all)
	return nil
}
