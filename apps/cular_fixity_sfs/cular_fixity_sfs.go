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

// cular_fixity_sfs regenerates observed manifests by walking the
// filesystem archive.
func main() {
	pathToConfigFile := parseCommandLine()
	config, err := models.LoadConfigFile(pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	_context.MessageLog.Info("cular_fixity_sfs started")
	worker := workers.NewFixitySFSWorker(_context)
	base := workers.NewBase(_context, worker, constants.MsgFixitySFS, &config.FixitySFSWorker)
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
cular_fixity_sfs computes observed checksums from the filesystem
archive.

Usage: cular_fixity_sfs -config=<path to CULAR config file>

Param -config is required.
`
	fmt.Println(message)
}
