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

// cular_log forwards job status messages to the ticketing system.
func main() {
	pathToConfigFile := parseCommandLine()
	config, err := models.LoadConfigFile(pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	_context.MessageLog.Info("cular_log started")
	worker := workers.NewLogWorker(_context)
	base := workers.NewBase(_context, worker, constants.MsgLog, &config.LogWorker)
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
cular_log forwards job status to the ticketing system.

Usage: cular_log -config=<path to CULAR config file>

Param -config is required.
`
	fmt.Println(message)
}
