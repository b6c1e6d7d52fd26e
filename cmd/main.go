// Copyright (c) 2025 A Bit of Help, Inc.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/abitofhelp/multicodec_archiver/pkg/codec"
	"github.com/abitofhelp/multicodec_archiver/pkg/encryption"
	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
	"github.com/abitofhelp/multicodec_archiver/pkg/logger"
	"github.com/abitofhelp/multicodec_archiver/pkg/pipeline"
	"github.com/abitofhelp/multicodec_archiver/pkg/pipeline/options"
	"github.com/abitofhelp/multicodec_archiver/pkg/stats"
	"github.com/abitofhelp/multicodec_archiver/pkg/utils"
	"go.uber.org/zap"
)

// ExitFunc is a function that exits the program with a given status code
type ExitFunc func(int)

// DefaultExitFunc is the default implementation of ExitFunc
var DefaultExitFunc = os.Exit

// ProcessFunc runs one compress or decompress request
type ProcessFunc func(ctx context.Context, log *zap.Logger, opts *options.Options) (*stats.Stats, error)

// LoggerFunc builds the application logger once the verbosity flag is known
type LoggerFunc func(verbose bool) *zap.Logger

// config holds the parsed command line
type config struct {
	opts    *options.Options
	genKey  string
	verbose bool
}

// parseArgs parses the command line into a config. Usage and flag errors go to out.
func parseArgs(args []string, out io.Writer) (*config, error) {
	fs := flag.NewFlagSet("multicodec_archiver", flag.ContinueOnError)
	fs.SetOutput(out)

	cfg := &config{opts: options.DefaultOptions()}
	var compress, decompress bool

	fs.BoolVar(&compress, "c", false, "compress the input into an archive")
	fs.BoolVar(&decompress, "d", false, "decompress an archive")
	fs.StringVar(&cfg.opts.Algorithm, "a", options.DefaultAlgorithm, "algorithm: "+algorithmNames())
	fs.StringVar(&cfg.opts.InputPath, "i", "", "input file or directory")
	fs.StringVar(&cfg.opts.OutputPath, "o", "", "output file or directory")
	fs.BoolVar(&cfg.opts.Parallel, "m", false, "compress in parallel chunks (rle, lz77, lz4)")
	fs.StringVar(&cfg.opts.KeysetPath, "keyset", "", "cleartext tink keyset used to seal or open the archive")
	fs.StringVar(&cfg.genKey, "genkey", "", "write a new keyset to this file")
	fs.BoolVar(&cfg.verbose, "v", false, "enable debug logging")

	fs.Usage = func() {
		fmt.Fprintln(out, "Usage: multicodec_archiver -c|-d -a <algorithm> -i <input> -o <output> [-m] [-keyset file] [-genkey file] [-v]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	switch {
	case compress && decompress:
		fs.Usage()
		return nil, errors.New("-c and -d are mutually exclusive")
	case compress:
		cfg.opts.Mode = options.ModeCompress
	case decompress:
		cfg.opts.Mode = options.ModeDecompress
	}

	if cfg.genKey != "" && cfg.opts.KeysetPath == "" {
		cfg.opts.KeysetPath = cfg.genKey
	}

	return cfg, nil
}

func algorithmNames() string {
	names := ""
	for i, alg := range codec.Algorithms() {
		if i > 0 {
			names += ", "
		}
		names += alg.String()
	}
	return names
}

// run is the main logic of the application, extracted for testability
func run(args []string, out io.Writer, newLogger LoggerFunc, exit ExitFunc, process ProcessFunc) {
	cfg, err := parseArgs(args, out)
	if errors.Is(err, flag.ErrHelp) {
		exit(0)
		return
	}
	if err != nil {
		fmt.Fprintln(out, err)
		exit(1)
		return
	}

	log := newLogger(cfg.verbose)
	defer logger.SafeSync(log)

	if cfg.genKey != "" {
		if err := encryption.GenerateKeysetFile(log, cfg.genKey); err != nil {
			log.Error("Failed to generate keyset", zap.Error(err))
			exit(1)
			return
		}
		if cfg.opts.Mode == options.ModeUnset {
			return
		}
	}

	if err := cfg.opts.Validate(); err != nil {
		fmt.Fprintln(out, err)
		exit(1)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanup := utils.SetupGracefulShutdown(ctx, cancel, log)
	defer cleanup()

	runStats, err := process(ctx, log, cfg.opts)
	if err != nil {
		switch {
		case customErrors.IsCancellationError(err):
			log.Warn("Processing was canceled", zap.Error(err))
		case customErrors.IsTimeoutError(err):
			log.Error("Processing timed out", zap.Error(err))
		case customErrors.IsCorruptStream(err), customErrors.IsMalformedArchive(err):
			log.Error("Input is not a valid archive for this algorithm",
				zap.String("algorithm", cfg.opts.Algorithm), zap.Error(err))
		case customErrors.IsIOError(err):
			log.Error("I/O error during processing", zap.Error(err))
		default:
			log.Error("Failed to process request", zap.Error(err))
		}
		exit(1)
		return
	}

	runStats.DisplaySummary(out, log, cfg.opts.InputPath, cfg.opts.OutputPath)
}

func main() {
	newLogger := func(verbose bool) *zap.Logger {
		return logger.InitLoggerWithLevel(logger.LevelFor(verbose), logger.DefaultExitFunc)
	}

	run(os.Args[1:], os.Stdout, newLogger, DefaultExitFunc, pipeline.Run)
}
