package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Glimesh/conform/config"
	"github.com/Glimesh/conform/internal/decoder/ffmpeg"
	"github.com/Glimesh/conform/pkg/reference"
	"github.com/Glimesh/conform/pkg/verify"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const usage = "Syntax: conform [flags] <folder with ref imgs> <.264 file> [folder to store frames]"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("conform", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	configFile := flags.StringP("config", "c", config.DefaultFile, "config file")
	logLevel := flags.String("log-level", "", "log level, overrides the config file")
	extract := flags.String("extract", "", "which frames to extract: all or differs")
	diffMaps := flags.Bool("diff-maps", false, "write diff<i>.ppm for differing frames")
	flags.Usage = func() {
		fmt.Fprintln(stderr, usage)
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() < 2 {
		flags.Usage()
		return 2
	}

	log := logrus.New()
	log.SetOutput(stderr)

	cfg, err := config.Load(filepath.Base(*configFile), filepath.Dir(*configFile))
	if err != nil {
		log.Errorf("failed to read config: %v", err)
		return 1
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *extract != "" {
		cfg.Extract.Mode = *extract
	}
	if flags.Changed("diff-maps") {
		cfg.Extract.DiffMaps = *diffMaps
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Errorf("failed to parse log level: %v", err)
		return 1
	}
	log.SetLevel(level)

	mode, err := verify.ParseExtractMode(cfg.Extract.Mode)
	if err != nil {
		log.Error(err)
		return 1
	}

	entry := log.WithField("run", uuid.New().String())
	refDir, streamPath := flags.Arg(0), flags.Arg(1)

	opts := verify.Options{
		Extract:        mode,
		DiffMaps:       cfg.Extract.DiffMaps,
		ProbeWidth:     *cfg.Extract.ProbeWidth,
		TrustLookahead: cfg.Extract.TrustLookahead,
	}
	if flags.NArg() > 2 {
		opts.FragmentDir = flags.Arg(2)
		if err := os.MkdirAll(opts.FragmentDir, 0o755); err != nil {
			entry.Errorf("failed to create fragments folder: %v", err)
			return 1
		}
	}

	f, err := os.Open(streamPath)
	if err != nil {
		fmt.Fprintln(stderr, "Could not read h264 source file")
		entry.WithError(err).Debug("open failed")
		return 1
	}
	defer f.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	refs := reference.NewLoader(refDir, reference.Naming{
		Prefix:     cfg.Reference.Prefix,
		LumaSuffix: cfg.Reference.LumaSuffix,
		CbSuffix:   cfg.Reference.CbSuffix,
		CrSuffix:   cfg.Reference.CrSuffix,
	})
	open := ffmpeg.Opener(ctx, streamPath, cfg.Decoder.FFmpegPath, entry)

	entry.Infof("verifying %s against %s", streamPath, refDir)
	v := verify.New(refs, open, opts, stdout, entry)
	if _, err := v.Run(bufio.NewReader(f)); err != nil {
		switch {
		case errors.Is(err, ffmpeg.ErrFFmpegNotFound):
			fmt.Fprintf(stderr, "Could not find ffmpeg binary %q\n", cfg.Decoder.FFmpegPath)
		case errors.Is(err, verify.ErrSourceUnreadable):
			fmt.Fprintln(stderr, "Could not read h264 source file")
		}
		entry.WithError(err).Error("verification stopped")
		return 1
	}

	return 0
}
