// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/docopt/docopt-go"
	"github.com/joho/godotenv"

	"github.com/boardirc/boardirc/irc"
	"github.com/boardirc/boardirc/irc/logger"
)

// set via linker flags, either by make or by goreleaser:
var commit = ""  // git hash
var version = "" // tagged version

func fileDoesNotExist(file string) bool {
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return true
	}
	return false
}

// loadEnv reads KEY=value pairs (such as BOARDIRC__SERVER__NAME) into the
// environment, without overwriting variables that are already set.
func loadEnv(envFile string, explicit bool) {
	if fileDoesNotExist(envFile) {
		if explicit {
			log.Fatalf("env file %s does not exist", envFile)
		}
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Fatal("Could not load env file: ", err.Error())
	}
}

func main() {
	irc.SetVersionString(version, commit)
	usage := `boardirc.
Usage:
	boardirc run [--conf <filename>] [--env <filename>] [--quiet] [--smoke]
	boardirc checkconf [--conf <filename>] [--env <filename>]
	boardirc -h | --help
	boardirc --version
Options:
	--conf <filename>  Configuration file to use [default: ircd.yaml].
	--env <filename>   File of environment overrides to load first [default: .env].
	--quiet            Don't show startup/shutdown lines.
	--smoke            Start the listeners, then shut down immediately.
	-h --help          Show this screen.
	--version          Show version.`

	arguments, _ := docopt.ParseArgs(usage, nil, irc.Ver)

	envFile := arguments["--env"].(string)
	loadEnv(envFile, envFile != ".env")

	configfile := arguments["--conf"].(string)
	config, err := irc.LoadConfig(configfile)
	if err != nil {
		log.Fatal("Config file did not load successfully: ", err.Error())
	}

	if arguments["checkconf"].(bool) {
		fmt.Printf("%s: config OK (%d listeners, datastore %s)\n", configfile, len(config.Server.Listeners), config.Datastore.Path)
		return
	}

	logman, err := logger.NewManager(config.Logging)
	if err != nil {
		log.Fatal("Logger did not load successfully:", err.Error())
	}
	defer logman.Close()

	quiet := arguments["--quiet"].(bool)
	if !quiet {
		logman.Info("server", fmt.Sprintf("%s starting", irc.Ver))
	}

	// warning if running a non-final version
	if strings.Contains(irc.Ver, "unreleased") {
		logman.Warning("server", "You are currently running an unreleased version of boardirc that may be unstable.")
	}

	server, err := irc.NewServer(config, logman)
	if err != nil {
		logman.Error("server", fmt.Sprintf("Could not load server: %s", err.Error()))
		os.Exit(1)
	}
	if err = server.Start(); err != nil {
		logman.Error("server", fmt.Sprintf("Could not start server: %s", err.Error()))
		server.Shutdown()
		os.Exit(1)
	}
	if arguments["--smoke"].(bool) {
		server.Shutdown()
		return
	}
	server.Run()
	if !quiet {
		logman.Info("server", "exiting")
	}
}
