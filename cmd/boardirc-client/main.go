// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package main

import (
	"context"
	"log"
	"net"
	"os"
	"time"

	"github.com/docopt/docopt-go"

	"github.com/boardirc/boardirc/irc"
	"github.com/boardirc/boardirc/irc/console"
)

func main() {
	usage := `boardirc-client.
Usage:
	boardirc-client <address> --user <username> [--host <hostname>] [--realname <realname>] [--nick <nick>] [--timeout <duration>]
	boardirc-client -h | --help
	boardirc-client --version
Options:
	--user <username>      Username to register with.
	--host <hostname>      Hostname to register with [default: localhost].
	--realname <realname>  Real name to register with [default: boardirc user].
	--nick <nick>          Nickname to set once registered.
	--timeout <duration>   How long to wait for the handshake [default: 30s].
	-h --help              Show this screen.
	--version              Show version.

Lines starting with / are commands (/join #go, /list, /quit); anything
else is posted to the current channel.`

	arguments, _ := docopt.ParseArgs(usage, nil, irc.Ver)

	addr := arguments["<address>"].(string)
	identity := console.Identity{
		Username: arguments["--user"].(string),
		Hostname: arguments["--host"].(string),
		Realname: arguments["--realname"].(string),
	}
	if nick, ok := arguments["--nick"].(string); ok {
		identity.Nick = nick
	}
	timeout, err := time.ParseDuration(arguments["--timeout"].(string))
	if err != nil {
		log.Fatal("invalid timeout: ", err.Error())
	}

	serverName, _, err := net.SplitHostPort(addr)
	if err != nil {
		log.Fatal("invalid address: ", err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	client, err := console.Dial(ctx, addr, serverName, identity)
	cancel()
	if err != nil {
		log.Fatal("couldn't connect: ", err.Error())
	}
	if err = client.Handshake(timeout); err != nil {
		client.Close()
		log.Fatal("handshake failed: ", err.Error())
	}
	if err = client.Run(os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}
