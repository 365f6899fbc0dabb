package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/log"
	homedir "github.com/mitchellh/go-homedir"

	"github.com/cenkalti/scrape"
	"github.com/cenkalti/scrape/internal/jsonutil"
	"github.com/cenkalti/scrape/internal/logger"
	"github.com/cenkalti/scrape/internal/metrics"
)

const defaultConfig = "~/.scrape.yaml"

var (
	configPath  = flag.String("config", defaultConfig, "config file with a default tracker list")
	trackerFlag = flag.String("trackers", "", "comma-separated tracker URLs, overrides the config file")
	debug       = flag.Bool("debug", false, "enable debug log")
	httpTimeout = flag.Duration("http-timeout", 10*time.Second, "per-request HTTP timeout")
	maxSeeders  = flag.Bool("max-seeders", false, "print only the max seeder count per hash")
	pretty      = flag.Bool("pretty", false, "print colorized per-tracker results instead of plain JSON")
)

func main() {
	flag.Parse()

	if *debug {
		logger.SetLevel(log.DEBUG)
	}

	trackers := strings.Split(*trackerFlag, ",")
	if *trackerFlag == "" {
		cp, err := homedir.Expand(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg, err := loadConfig(cp)
		if err != nil {
			log.Fatal(err)
		}
		trackers = cfg.Trackers
	}

	args := flag.Args()
	if len(args) == 0 || len(trackers) == 0 {
		fmt.Fprintln(os.Stderr, "usage: scrape [-trackers <url,url,...>] <info-hash> [info-hash...]")
		os.Exit(1)
	}

	result, err := scrape.ScrapeInfoHashes(context.Background(), args, trackers,
		scrape.WithHTTPTimeout(*httpTimeout))
	if err != nil {
		log.Fatal(err)
	}

	if *pretty {
		printPretty(result)
		return
	}

	var out interface{} = result
	if *maxSeeders {
		out = scrape.FindMaxSeeders(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal(err)
	}
}

func printPretty(result scrape.ScrapeResult) {
	for hash, stats := range result {
		fmt.Println(hash)
		for _, s := range stats {
			b, err := jsonutil.MarshalCompactPretty(s)
			if err != nil {
				log.Fatal(err)
			}
			os.Stdout.Write(b)
		}
	}
	fmt.Printf("tasks attempted=%d succeeded=%d failed=%d\n",
		metrics.Default.TasksAttempted.Count(),
		metrics.Default.TasksSucceeded.Count(),
		metrics.Default.TasksFailed.Count())
}
