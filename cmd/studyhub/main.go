package main

import (
	"os"

	"studyhub-backend/cmd/studyhub/commands"
	"studyhub-backend/lib/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext()
	defer cancel()

	err := commands.Execute(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr)
	if err != nil {
		cancel()
		serviceutil.Fatal("command failed", err)
	}
}
