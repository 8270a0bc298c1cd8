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

// cular_transfer_sfs copies job files to the networked filesystem
// archive, then marks the platform transfer complete.
func main() {
	pathToConfigFile := parseCommandLine()
	config, err := models.LoadConfigFile(pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	_context.MessageLog.Info("cular_transfer_sfs started")
	worker := workers.NewTransferSFSWorker(_context)
	base := workers.NewBase(_context, worker, constants.MsgTransferSFS, &config.TransferSFSWorker)
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
cular_transfer_sfs copies job files to the filesystem archive.

Usage: cular_transfer_sfs -config=<path to CULAR config file>

Param -config is required.
`
	fmt.Println(message)
}
