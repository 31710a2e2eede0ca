package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tjg323/recdotgov/internal/adapters/cache"
	"github.com/tjg323/recdotgov/internal/adapters/dataset"
	"github.com/tjg323/recdotgov/internal/adapters/geocoding"
	"github.com/tjg323/recdotgov/internal/application/commands"
	"github.com/tjg323/recdotgov/internal/application/services"
	"github.com/tjg323/recdotgov/internal/domain/entities"
	"github.com/tjg323/recdotgov/internal/domain/providers"
	"github.com/tjg323/recdotgov/internal/infrastructure/clients/recreation"
	"github.com/tjg323/recdotgov/internal/infrastructure/observability"
	"github.com/tjg323/recdotgov/pkg/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: recgov <command> [flags]

Commands:
  build-list     Build the candidate campground list
  fetch          Fetch availability for every candidate facility
  merge          Merge previously fetched files without refetching
  cache-status   Report freshness of cached artifacts

Run 'recgov <command> -h' for command flags.
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger("recgov", cfg.Env)
	logger := observability.GetLogger()

	pipeline, err := buildPipeline(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build pipeline")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var result commands.Result
	switch os.Args[1] {
	case "build-list":
		fs := flag.NewFlagSet("build-list", flag.ExitOnError)
		location := fs.String("location", "", "Search center, e.g. \"Lake Tahoe, CA\" (default: configured center)")
		distance := fs.Float64("distance", cfg.Search.DefaultDistance, "Max distance in miles")
		fs.Parse(os.Args[2:])
		result = pipeline.BuildCandidateList(ctx, *location, *distance)

	case "fetch":
		fs := flag.NewFlagSet("fetch", flag.ExitOnError)
		month := fs.String("month", time.Now().Format("2006-01"), "Month to fetch, YYYY-MM")
		parallel := fs.Bool("parallel", false, "Use the parallel worker pool instead of paced sequential fetching")
		fs.Parse(os.Args[2:])
		result = pipeline.FetchAvailability(ctx, *month, *parallel)

	case "merge":
		fs := flag.NewFlagSet("merge", flag.ExitOnError)
		month := fs.String("month", time.Now().Format("2006-01"), "Month to merge, YYYY-MM")
		fs.Parse(os.Args[2:])
		result = pipeline.MergeAvailability(ctx, *month)

	case "cache-status":
		fs := flag.NewFlagSet("cache-status", flag.ExitOnError)
		location := fs.String("location", "", "Search center used when building the list")
		distance := fs.Float64("distance", cfg.Search.DefaultDistance, "Max distance in miles")
		month := fs.String("month", time.Now().Format("2006-01"), "Month to check, YYYY-MM")
		fs.Parse(os.Args[2:])
		result = pipeline.CheckCacheStatus(ctx, *location, *distance, *month)

	default:
		usage()
		os.Exit(2)
	}

	if result.Status == commands.StatusError {
		logger.Error().Str("command", os.Args[1]).Msg(result.Message)
		os.Exit(1)
	}
	logger.Info().Str("command", os.Args[1]).Msg(result.Message)
}

func buildPipeline(cfg *config.Config) (*commands.Pipeline, error) {
	logger := *observability.GetLogger()

	store, err := cache.NewFileStore(cfg.Cache.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}
	tracker := services.NewCacheTracker(store, time.Duration(cfg.Cache.TTLMinutes)*time.Minute, logger)

	geocoder := geocoding.NewNominatimProvider(
		cfg.Geocoding.BaseURL, cfg.Geocoding.UserAgent, cfg.Geocoding.CountryCode)
	source := dataset.NewRIDBSource(cfg.Dataset.URL, cfg.Dataset.ArchivePath, logger)

	defaultCenter := entities.Coordinates{
		Latitude:  cfg.Search.DefaultLatitude,
		Longitude: cfg.Search.DefaultLongitude,
	}
	candidates := services.NewCandidateService(
		source, geocoder, cfg.Search.DefaultLocation, defaultCenter, cfg.Dataset.ListPath, logger)

	apiTimeout := time.Duration(cfg.Recreation.TimeoutSecs) * time.Second
	newClient := func() providers.AvailabilityClient {
		return recreation.NewClient(cfg.Recreation.BaseURL, apiTimeout)
	}
	fetcher := services.NewFetchService(
		newClient, cfg.Fetch.OutputDir, cfg.Fetch.Workers,
		time.Duration(cfg.Fetch.BaseDelayMS)*time.Millisecond, logger)

	merger := services.NewMergeService(cfg.Fetch.OutputDir, ".", logger)

	return commands.NewPipeline(candidates, fetcher, merger, tracker, commands.Options{
		ListPath:        cfg.Dataset.ListPath,
		DefaultLocation: cfg.Search.DefaultLocation,
		DefaultDistance: cfg.Search.DefaultDistance,
		BuildTimeout:    5 * time.Minute,
		FetchTimeout:    10 * time.Minute,
	}, logger), nil
}
