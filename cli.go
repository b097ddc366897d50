package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/frankdfr96/MEVresearch/api"
)

func stop(args []string, c *api.Client) {
	const usage = `
tipsim stop

Stop the service.
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
	if err := c.Stop(); err != nil {
		log.Fatal(err)
	}
}

func status(args []string, c *api.Client) {
	const usage = `
tipsim status

Show service status:

	dataset  : The loaded dataset, or why it isn't available.
	gastarget: Burn and missed slots of the latest gas targeting backtest.
	oneoff   : Burn and missed slots of the latest one-off fee backtest.
	hybrid   : Burn and missed slots of the latest hybrid backtest.

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

	result, err := c.Status()
	if err != nil {
		log.Fatal(err)
	}

	for _, k := range append([]string{"dataset"}, allAlgos...) {
		fmt.Printf("%-9s: %s\n", k, result[k])
	}
}

func simulate(args []string, c *api.Client) {
	const usage = `
tipsim simulate [-v] [-p PARAMS] ALGO

Backtest fee mechanism ALGO (gastarget, oneoff, hybrid or all) over the
service's dataset, and print the results.

PARAMS is a JSON object overriding the configured params, e.g.
	-p '{"hybrid": {"bribespercentage": 50, "fixedgasfee": true}}'

`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	verbose := f.Bool("v", false, "Print gas usage and outlier statistics.")
	params := f.String("p", "", "JSON object of params to override.")
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}
	if f.NArg() != 1 {
		f.Usage()
		os.Exit(1)
	}

	var p json.RawMessage
	if *params != "" {
		if !json.Valid([]byte(*params)) {
			log.Fatalf("Invalid params JSON: %s", *params)
		}
		p = json.RawMessage(*params)
	}
	runs, err := c.Simulate(f.Arg(0), p)
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range runs {
		if err := r.Summary.Write(os.Stdout, *verbose); err != nil {
			log.Fatal(err)
		}
	}
}

func setDebug(args []string, c *api.Client) {
	const usage = `
tipsim setdebug BOOL

Turn on debug-level logging with "true"; turn off with "false".

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
	on, err := strconv.ParseBool(f.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	if err := c.SetDebug(on); err != nil {
		log.Fatal(err)
	}
}

func appConfig(args []string, c *api.Client) {
	const usage = `
tipsim config

Show the service config settings.

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

	result, err := c.Config()
	if err != nil {
		log.Fatal(err)
	}
	printJSON(result)
}

func appMetrics(args []string, c *api.Client) {
	const usage = `
tipsim metrics

Show app metrics: sim run times, and Flashbots API request times.

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

	result, err := c.Metrics()
	if err != nil {
		log.Fatal(err)
	}
	printJSON(result)
}

func printJSON(v interface{}) {
	b, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(b))
}
