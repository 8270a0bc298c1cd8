package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cul-it/cular/context"
	"github.com/cul-it/cular/models"
	"github.com/cul-it/cular/workers"
)

// cular_dead_letter_monitor sweeps the dead-letter queues and raises
// a ticket for every message it finds.
func main() {
	pathToConfigFile := parseCommandLine()
	config, err := models.LoadConfigFile(pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	_context.MessageLog.Info("cular_dead_letter_monitor started")
	monitor := workers.NewDeadLetterMonitor(_context)
	monitor.Run()
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
cular_dead_letter_monitor watches the dead-letter queues and opens a
ticket for every message that lands in one.

Usage: cular_dead_letter_monitor -config=<path to CULAR config file>

Param -config is required.
`
	fmt.Println(message)
}
