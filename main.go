package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/habedi/dcli/cmd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// main sets up logging from DEBUG_DCLI, cancels the running command on
// interrupt and runs the root command.
func main() {
	configureLogLevelFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopChan := setupInterruptListener()
	go handleInterrupt(stopChan, func(msg string) { log.Warn().Msg(msg) }, cancel)

	cmd.Execute(ctx)
}

// configureLogLevelFromEnv enables debug logging to stderr when DEBUG_DCLI is
// set to anything other than "", "0" or "false"; otherwise logging is off.
func configureLogLevelFromEnv() {
	switch os.Getenv("DEBUG_DCLI") {
	case "", "0", "false":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func setupInterruptListener() chan os.Signal {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt)
	return stopChan
}

// handleInterrupt waits for a signal, logs it and cancels the command context.
// The command then unwinds through its deferred cleanup and Execute exits.
func handleInterrupt(stopChan chan os.Signal, logFn func(string), cancel context.CancelFunc) {
	<-stopChan
	logFn("Interrupt signal received. Exiting...")
	cancel()
}
