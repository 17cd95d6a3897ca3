package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dbwire/dbwire.go/contrib/dbping"
)

func main() {
	// Create config with defaults
	config := dbping.NewConfig()

	// Parse command-line flags into config
	flag.StringVar(&config.URL, "url", config.URL, "Endpoint to ping")
	flag.IntVar(&config.Count, "count", config.Count, "Number of pings to send")
	flag.DurationVar(&config.Interval, "interval", config.Interval, "Pause between pings")
	flag.DurationVar(&config.Timeout, "timeout", config.Timeout, "Per-ping deadline (0 disables)")
	flag.BoolVar(&config.Verbose, "verbose", false, "Enable verbose logging")

	flag.Parse()

	// Validate configuration
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	// Execute the ping run
	ctx := context.Background()
	if _, err := dbping.Do(ctx, config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
