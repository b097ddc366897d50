package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/frankdfr96/MEVresearch/api"
	"github.com/frankdfr96/MEVresearch/collect/flashbots"
	"github.com/frankdfr96/MEVresearch/db/bolt"
)

const usage = `
tipsim [-c CONFIGFILE] [-d DATADIR] COMMAND [-h | -help] [args...]

Commands:
	fetch       (download and cache the block dataset)
	run         (backtest the fee mechanisms and print the results)
	serve       (start the backtest service)
	stop        (terminate the service)
	version     (show app version)
	status      (show service status)
	simulate    (backtest a fee mechanism on the service's dataset)
	setdebug    (turn on/off debug-level logging)
	metrics     (show app metrics)
	config      (show app config settings.)

`

const version = "0.1.0"

func main() {
	var (
		configFile, dataDir string
	)
	flag.CommandLine.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		flag.CommandLine.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	flag.StringVar(&configFile, "c", "",
		fmt.Sprintf("Path to config file (alternatively, use %s env var).", configFileEnv))
	flag.StringVar(&dataDir, "d", "",
		fmt.Sprintf("Path to data directory (alternatively, use %s env var).", dataDirEnv))
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.CommandLine.Usage()
		os.Exit(1)
	}

	cfg, err := loadConfig(configFile, dataDir)
	if err != nil {
		log.Fatal(err)
	}

	apiclient := api.NewClient(api.Config{
		Host:    cfg.AppRPC.Host,
		Port:    cfg.AppRPC.Port,
		Timeout: 60,
	})

	switch args[0] {
	case "fetch":
		fetch(args, cfg)
	case "run":
		runBacktest(args, cfg)
	case "serve":
		serve(args, cfg)
	case "version":
		fmt.Println(version)
	case "stop":
		stop(args, apiclient)
	case "status":
		status(args, apiclient)
	case "simulate":
		simulate(args, apiclient)
	case "setdebug":
		setDebug(args, apiclient)
	case "metrics":
		appMetrics(args, apiclient)
	case "config":
		appConfig(args, apiclient)
	default:
		log.Fatalf("Invalid command '%s'", args[0])
	}
}

func fetch(args []string, cfg config) {
	const usage = `
tipsim fetch

Download the blocks of the configured dataset (collect.lastblock,
collect.daysback) from the Flashbots blocks API, and cache them in the data
directory. Nothing is downloaded if the dataset is already cached.

`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}

	dLog := NewDebugLog(os.Stderr, "", log.LstdFlags, cfg.Debug)
	defer dLog.Close()
	b, err := newBacktest(cfg, dLog.Logger)
	if err != nil {
		log.Fatal(err)
	}
	defer b.db.Close()

	ctx, cancel := signalContext()
	defer cancel()
	if err := b.Load(ctx); err != nil {
		dLog.Close()
		log.Fatal(err)
	}
}

func runBacktest(args []string, cfg config) {
	const usage = `
tipsim run [-v] [-o FILE] [ALGO]

Backtest fee mechanism ALGO (gastarget, oneoff, hybrid or all; default all)
over the configured dataset, downloading it if it isn't cached, and print the
results.

`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	verbose := f.Bool("v", false, "Print gas usage and outlier statistics.")
	seriesFile := f.String("o", "", "Write the per-block series to FILE as CSV.")
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}
	algos := f.Args()
	if len(algos) == 0 {
		algos = []string{algoAll}
	}

	dLog := NewDebugLog(os.Stderr, "", log.LstdFlags, cfg.Debug)
	defer dLog.Close()
	fatal := func(err error) {
		dLog.Close()
		log.Fatal(err)
	}
	b, err := newBacktest(cfg, dLog.Logger)
	if err != nil {
		fatal(err)
	}
	defer b.db.Close()

	ctx, cancel := signalContext()
	defer cancel()
	if err := b.Load(ctx); err != nil {
		fatal(err)
	}
	runs, err := b.Run(ctx, cfg.Params, algos...)
	if err != nil {
		fatal(err)
	}
	for _, r := range runs {
		if err := r.Summary.Write(os.Stdout, *verbose); err != nil {
			fatal(err)
		}
	}

	if *seriesFile != "" {
		out, err := os.Create(*seriesFile)
		if err != nil {
			fatal(err)
		}
		defer out.Close()
		d, _ := b.Dataset()
		if err := writeSeries(out, d, runs); err != nil {
			fatal(err)
		}
		dLog.Logger.Printf("Series written to %s.", *seriesFile)
	}
}

func serve(args []string, cfg config) {
	const usage = `
tipsim serve

Start the backtest service. The service loads the configured dataset
(downloading it if it isn't cached), backtests all the fee mechanisms with the
configured params, and then serves further backtests through its RPC API.

Use tipsim status to check the service status, and tipsim simulate to run
backtests with other params.
`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}

	// Setup the logger
	var dLog *DebugLog
	logFileMode := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if f, err := os.OpenFile(cfg.LogFile, logFileMode, 0666); err != nil {
		log.Fatal(fmt.Errorf("opening logfile: %v", err))
	} else {
		dLog = NewDebugLog(f, "", log.LstdFlags, cfg.Debug)
	}
	defer dLog.Close()

	backtest, err := newBacktest(cfg, dLog.Logger)
	if err != nil {
		log.Fatal(err)
	}
	service := &Service{Backtest: backtest, DLog: dLog, Cfg: cfg}

	os.Stdout.Close()
	os.Stderr.Close()
	os.Stdin.Close()

	errc := make(chan error)
	go func() { errc <- backtest.Serve() }()
	go func() { errc <- service.ListenAndServe() }()

	// Signal handling
	sigc := make(chan os.Signal, 3)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		<-sigc
		backtest.Stop()
	}()

	err = <-errc
	// Blocks until it is safely shutdown. It is idempotent, so no harm if
	// the backtest is already stopped.
	backtest.Stop()
	if err != nil {
		dLog.Logger.Println("[ERROR]", err)
		dLog.Close()
		os.Exit(1)
	}
}

func newBacktest(cfg config, logger *log.Logger) (*Backtest, error) {
	db, err := loadBlockDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("loadBlockDB: %v", err)
	}
	c := cfg.BacktestConfig
	c.getPage = flashbots.Getter(cfg.Flashbots, cfg.Collect.PageSize)
	c.logger = logger
	return NewBacktest(db, c), nil
}

func loadBlockDB(cfg config) (BlockDB, error) {
	const dbFileName = "blocks.db"
	dbfile := filepath.Join(cfg.DataDir, dbFileName)
	return bolt.LoadBlockDB(dbfile)
}

// signalContext returns a context which is canceled on interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
