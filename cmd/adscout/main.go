package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "adscout",
		Usage: "Scrape a brand's ads from the Meta Ad Library",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file to load before reading the environment",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "scrape",
				Usage:     "Run one scrape and print the result",
				ArgsUsage: "<brand>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 10, Usage: "number of ads to return (max 10)"},
					&cli.StringFlag{Name: "impressions", Value: "last_30d", Usage: "impression period: last_7d, last_30d, last_90d, all_time"},
					&cli.StringFlag{Name: "started", Value: "last_90d", Usage: "start window: last_7d, last_30d, last_90d, last_6m, last_1y"},
					&cli.StringFlag{Name: "country", Usage: "ISO country code, empty for all"},
					&cli.StringFlag{Name: "source-url", Usage: "ad library search URL to use instead of the brand keyword"},
					&cli.StringFlag{Name: "format", Value: "json", Usage: "output format: json or yaml"},
					&cli.StringFlag{Name: "save-dir", Usage: "also archive the request and result under this directory"},
				},
				Action: scrapeAction,
			},
			{
				Name:  "serve",
				Usage: "Serve the scrape API over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen address, overrides ADSCOUT_HTTP_ADDR"},
					&cli.DurationFlag{Name: "shutdown-timeout", Value: 10 * time.Second},
				},
				Action: serveAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
