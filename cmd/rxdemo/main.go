package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/mkideal/cli"
	clix "github.com/mkideal/cli/ext"
	"github.com/rsocket/rx-engine/logger"
	"github.com/rsocket/rx-engine/rx/hooks"
	"github.com/rsocket/rx-engine/rx/scheduler"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const errUnknownScenario = "unknown scenario: '%s'"

type opts struct {
	cli.Helper

	Debug    bool          `cli:"d, debug" usage:"Debug Output"`
	Scenario []string      `cli:"s, scenario" name:"name" usage:"Scenario to run [basic|operators|schedulers|backpressure|sample], all when empty"`
	Format   string        `cli:"f, format" name:"format" usage:"Output Format [text|cbor]" dft:"text"`
	Count    int           `cli:"n, count" name:"count" usage:"Values emitted by the backpressure producer" dft:"10000"`
	Capacity int           `cli:"c, capacity" name:"capacity" usage:"Demand channel capacity" dft:"10"`
	Policy   string        `cli:"p, policy" name:"policy" usage:"Overflow policy [buffer|drop|latest|error]" dft:"drop"`
	Delay    clix.Duration `cli:"delay" name:"duration" usage:"Consumer delay per value" dft:"1ms"`
	Period   clix.Duration `cli:"period" name:"duration" usage:"Interval source period" dft:"1ms"`
	Sample   clix.Duration `cli:"sample" name:"duration" usage:"Sample interval" dft:"1s"`
	Duration clix.Duration `cli:"duration" name:"duration" usage:"Run time of the sample scenario" dft:"5s"`

	log     *zap.Logger
	dropped atomic.Int64
}

func (o *opts) configureLogging() (err error) {
	if o.Debug {
		logger.SetLevel(logger.LevelDebug)
		o.log, err = zap.NewDevelopment()
	} else {
		logger.SetLevel(logger.LevelInfo)
		o.log, err = zap.NewProduction()
	}
	if err != nil {
		return
	}

	rxLogger := o.log.Named("rx").WithOptions(zap.AddCaller(), zap.AddCallerSkip(2))
	logger.DisablePrefix()
	logger.SetLogger(rxLogger.Sugar())

	hooks.OnNextDrop(func(v interface{}) {
		o.dropped.Inc()
	})
	hooks.OnErrorDrop(func(e error) {
		rxLogger.Debug("error dropped", zap.Error(e))
	})
	hooks.OnFault(func(e error) {
		rxLogger.Warn("protocol violation", zap.Error(e))
	})
	return
}

func (o *opts) scenarios() ([]scenario, error) {
	if len(o.Scenario) == 0 {
		return allScenarios, nil
	}
	var selected []scenario
	for _, name := range o.Scenario {
		sc, ok := lookupScenario(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf(errUnknownScenario, name)
		}
		selected = append(selected, sc)
	}
	return selected, nil
}

func (o *opts) run(ctx context.Context, p *printer) (err error) {
	selected, err := o.scenarios()
	if err != nil {
		return
	}
	for _, sc := range selected {
		o.log.Info("run scenario", zap.String("scenario", sc.name))
		if e := sc.run(ctx, o, p); e != nil {
			o.log.Error("scenario failed", zap.String("scenario", sc.name), zap.Error(e))
			err = multierr.Append(err, e)
		}
		if ctx.Err() != nil {
			return multierr.Append(err, ctx.Err())
		}
	}
	return
}

func main() {
	os.Exit(cli.Run(new(opts), func(cmdline *cli.Context) (err error) {
		o := cmdline.Argv().(*opts)

		if err = o.configureLogging(); err != nil {
			return
		}
		defer o.log.Sync()
		defer func() {
			err = multierr.Append(err, scheduler.Shutdown())
		}()

		o.log.Debug("parsed opts", zap.Reflect("opts", o))

		p, err := newPrinter(os.Stdout, o.Format)
		if err != nil {
			return
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		return o.run(ctx, p)
	}, "Demo driver for the rx engine."))
}
