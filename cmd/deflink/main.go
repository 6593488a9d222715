package main

import (
	"context"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/morozRed/deflink/internal/cli"
)

var version = "0.1.0-dev"

func main() {
	// The language server's protocol log goes to stderr; stdout carries
	// the protocol itself.
	commonlog.Configure(0, nil)

	if err := cli.NewRootCommand(version).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
