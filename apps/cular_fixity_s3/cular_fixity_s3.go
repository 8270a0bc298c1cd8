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

// cular_fixity_s3 regenerates observed manifests from the primary
// object store.
func main() {
	pathToConfigFile := parseCommandLine()
	config, err := models.LoadConfigFile(pathToConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	_context := context.NewContext(config)
	_context.MessageLog.Info("cular_fixity_s3 started")
	worker := workers.NewFixityS3Worker(_context)
	base := workers.NewBase(_context, worker, constants.MsgFixityS3, &config.FixityS3Worker)
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
cular_fixity_s3 computes observed checksums from the object store.

Usage: cular_fixity_s3 -config=<path to CULAR config file>

Param -config is required.
`
	fmt.Println(message)
}
