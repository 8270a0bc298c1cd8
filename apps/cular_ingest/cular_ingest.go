package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/context"
	"github.com/cul-it/cular/models"
	"github.com/cul-it/cular/workers"
)

// cular_ingest starts jobs: it records each deposited ingest
// manifest, initializes transfer state, and fans the job out to the
// transfer workers.
func main() {
	pathToConfigFile := parseCommandLine()
	config, err := models.LoadConfigFile(pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	_context.MessageLog.Info("cular_ingest started")
	worker := workers.NewIngestWorker(_context)
	base := workers.NewBase(_context, worker, constants.MsgIngest, &config.IngestWorker)
	base.Run()
}

func parseCommandLine() (configFile string) {
	var pathToConfigFile string
	flag.StringVar(&pathToConfigFile, "config", "", "Path to CULAR config file")
	flag.Parse()
	if pathToConfigFile == "" {
		printUsage()
		os.Exit(1)
	}
	return pathToConfigFile
}

func printUsage() {
	message := `
cular_ingest polls the ingest queue and starts preservation jobs.

Usage: cular_ingest -config=<path to CULAR config file>

Param -config is required.
`
	fmt.Println(message)
}
