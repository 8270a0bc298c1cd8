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

// cular_compare runs the three-way manifest comparison that decides
// whether a job is done, and chains periodic fixity jobs.
func main() {
	pathToConfigFile := parseCommandLine()
	config, err := models.LoadConfigFile(pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	_context.MessageLog.Info("cular_compare started")
	worker := workers.NewCompareWorker(_context)
	base := workers.NewBase(_context, worker, constants.MsgFixityCompare, &config.CompareWorker)
	base.NotifyOnError = true
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
cular_compare verifies that the ingest manifest and both observed
manifests agree before a job is marked done.

Usage: cular_compare -config=<path to CULAR config file>

Param -config is required.
`
	fmt.Println(message)
}
