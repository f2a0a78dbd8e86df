package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"cachetrace/internal/adapters/twemcache"
	"cachetrace/internal/core/classify"
	"cachetrace/internal/core/version"
	"cachetrace/internal/modkit"
	"cachetrace/internal/platform/config"
	perr "cachetrace/internal/platform/errors"
	"cachetrace/internal/platform/logger"
	convertdom "cachetrace/internal/services/convert/domain"
	convertmod "cachetrace/internal/services/convert/module"

	"github.com/google/uuid"
	"github.com/urfave/cli"
)

const usageText = `cachetrace [flags] <path-to-archive>
   cachetrace [flags] --cluster N [--variant sample|full]`

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

// envFlags surfaces CLI flags to the CONVERT_* keys read by the convert module
var envFlags = []struct {
	flag string
	env  string
}{
	{"profile", "CONVERT_PROFILE"},
	{"hash-len", "CONVERT_HASH_LEN"},
	{"hash", "CONVERT_HASH"},
	{"out-dir", "CONVERT_OUT_DIR"},
	{"malformed", "CONVERT_MALFORMED"},
	{"progress-every", "CONVERT_PROGRESS_EVERY"},
	{"work-dir", "CONVERT_FETCH_WORK_DIR"},
	{"retries", "CONVERT_FETCH_RETRIES"},
	{"http-timeout", "CONVERT_FETCH_HTTP_TIMEOUT"},
	{"retry-base", "CONVERT_FETCH_RETRY_BASE"},
	{"full-url", "CONVERT_FETCH_FULL_URL"},
	{"sample-url", "CONVERT_FETCH_SAMPLE_URL"},
	{"decompressor", "CONVERT_DECOMP_KIND"},
	{"zstd-threads", "CONVERT_DECOMP_THREADS"},
}

func main() {
	os.Exit(run(os.Args, os.Stderr))
}

// run executes the CLI and returns the process exit status
func run(args []string, stderr io.Writer) int {
	app := newApp(stderr)
	err := app.Run(args)
	if err == nil {
		return perr.ExitOK
	}
	code := perr.ExitCode(err)
	fmt.Fprintf(stderr, "cachetrace: %v\n", err)
	// bad flag values fail validation after parsing; they still earn the hint
	if code == perr.ExitUsage || perr.IsCode(err, perr.ErrorCodeValidation) {
		fmt.Fprintf(stderr, "usage: %s\nrun 'cachetrace --help' for the flag list\n", usageText)
	}
	return code
}

func newApp(stderr io.Writer) *cli.App {
	a := cli.NewApp()
	a.Name = "cachetrace"
	a.Usage = "convert twemcache traces into READ/UPDATE workload traces"
	a.UsageText = usageText
	a.Version = version.Info().String()
	a.ErrWriter = stderr
	a.Flags = []cli.Flag{
		// source
		&cli.IntFlag{
			Name:  "cluster",
			Usage: "published cluster number to download and convert",
		},
		&cli.StringFlag{
			Name:  "variant",
			Value: string(twemcache.VariantSample),
			Usage: "dataset variant for --cluster: sample | full",
		},
		// conversion
		&cli.StringFlag{
			Name:  "profile",
			Value: classify.DefaultProfile,
			Usage: "output vocabulary: " + strings.Join(classify.ProfileNames(), " | "),
		},
		&cli.IntFlag{
			Name:  "hash-len",
			Usage: "hex characters kept from the key digest (default from profile)",
		},
		&cli.StringFlag{
			Name:  "hash",
			Usage: "key digest: sha256 | sha512 (default from profile)",
		},
		&cli.BoolFlag{
			Name:  "dedup",
			Usage: "also write the unique-key stream",
		},
		&cli.BoolFlag{
			Name:  "no-dedup",
			Usage: "skip the unique-key stream",
		},
		&cli.StringFlag{
			Name:  "malformed",
			Value: string(convertdom.MalformedSkip),
			Usage: "short records: skip | abort",
		},
		&cli.Int64Flag{
			Name:  "progress-every",
			Usage: "converted lines between progress logs, 0 disables (default 10000000)",
		},
		// files
		&cli.StringFlag{
			Name:  "out-dir",
			Usage: "directory for the converted streams",
		},
		&cli.StringFlag{
			Name:  "work-dir",
			Value: ".",
			Usage: "directory for downloaded archives",
		},
		&cli.StringFlag{
			Name:  "decompressor",
			Value: "native",
			Usage: "native | zstd (external binary)",
		},
		&cli.IntFlag{
			Name:  "zstd-threads",
			Usage: "decoder threads, 0 lets zstd decide",
		},
		// network
		&cli.BoolFlag{
			Name:  "refetch",
			Usage: "download even when a local copy exists",
		},
		&cli.IntFlag{
			Name:  "retries",
			Value: 3,
			Usage: "retries for transient download failures",
		},
		&cli.DurationFlag{
			Name:  "http-timeout",
			Usage: "whole-request download timeout, 0 means none",
		},
		&cli.DurationFlag{
			Name:  "retry-base",
			Value: 500 * time.Millisecond,
			Usage: "first backoff interval between download retries",
		},
		&cli.StringFlag{
			Name:  "full-url",
			Usage: "base URL of the full dataset (mirrors)",
		},
		&cli.StringFlag{
			Name:  "sample-url",
			Usage: "base URL of the sample dataset (mirrors)",
		},
	}
	a.OnUsageError = func(_ *cli.Context, err error, _ bool) error {
		return perr.Usagef("%v", err)
	}
	a.Action = runConvert
	return a
}

// runConvert is the application entry point
func runConvert(c *cli.Context) error {
	src, err := sourceFrom(c)
	if err != nil {
		return err
	}
	surfaceFlags(c)

	runID := uuid.NewString()
	logger.Init(logger.FromEnv())
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithRun(ctx, runID, src.String())

	deps := modkit.Deps{Cfg: config.New(), Log: *l}
	cm, err := convertmod.New(deps)
	if err != nil {
		return err
	}

	st, err := cm.Runner().Run(ctx, src)
	if err != nil {
		logger.C(ctx).Error().Err(err).Str("code", perr.CodeOf(err).String()).Msg("conversion failed")
		return err
	}
	logger.C(ctx).Info().
		Str("full", st.Outputs.Full).
		Str("unique", st.Outputs.Unique).
		Msg("done")
	return nil
}

// sourceFrom reads the positional path or --cluster; exactly one is required
func sourceFrom(c *cli.Context) (convertdom.Source, error) {
	var src convertdom.Source
	switch c.NArg() {
	case 0:
	case 1:
		src.Path = c.Args().First()
	default:
		return src, perr.Usagef("expected one trace path, got %d arguments", c.NArg())
	}

	if c.IsSet("cluster") {
		v, err := twemcache.ParseVariant(c.String("variant"))
		if err != nil {
			return src, perr.Usagef("%v", err)
		}
		ref := twemcache.ClusterRef{Index: c.Int("cluster"), Variant: v}
		src.Cluster = &ref
	} else if c.IsSet("variant") {
		return src, perr.Usagef("--variant only applies with --cluster")
	}

	if c.Bool("dedup") && c.Bool("no-dedup") {
		return src, perr.Usagef("--dedup and --no-dedup are mutually exclusive")
	}
	return src, src.Validate()
}

// surfaceFlags copies explicitly set flags into the environment
func surfaceFlags(c *cli.Context) {
	for _, f := range envFlags {
		if c.IsSet(f.flag) {
			mustSetEnv(f.env, flagString(c, f.flag))
		}
	}
	switch {
	case c.Bool("dedup"):
		mustSetEnv("CONVERT_DEDUP", "1")
	case c.Bool("no-dedup"):
		mustSetEnv("CONVERT_DEDUP", "0")
	}
	if c.Bool("refetch") {
		mustSetEnv("CONVERT_FETCH_REFETCH", "1")
	}
}

func flagString(c *cli.Context, name string) string {
	switch name {
	case "hash-len", "retries", "zstd-threads":
		return strconv.Itoa(c.Int(name))
	case "progress-every":
		return strconv.FormatInt(c.Int64(name), 10)
	case "http-timeout", "retry-base":
		return c.Duration(name).String()
	default:
		return c.String(name)
	}
}
