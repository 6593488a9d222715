package main

import (
	"bytes"
	"testing"

	"github.com/morozRed/deflink/internal/cli"
)

func TestRootCommandHelp(t *testing.T) {
	root := cli.NewRootCommand(version)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})
	if err := root.Execute(); err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, want := range []string{"deflink", "rewrite", "refresh", "serve"} {
		if !bytes.Contains(out.Bytes(), []byte(want)) {
			t.Fatalf("expected help to mention %q, got:\n%s", want, out.String())
		}
	}
}
