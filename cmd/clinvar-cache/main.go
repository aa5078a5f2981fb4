// clinvar-cache builds a standalone indexed cache store from a ClinVar
// source file (VCF or variant_summary, optionally gzipped), so profile
// imports can sync against it without re-parsing the multi-GB source.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/variantlab/dnainsights/internal/clinvar"
	"github.com/variantlab/dnainsights/internal/progress"
)

var (
	app = kingpin.New("clinvar-cache", "build a local ClinVar cache store from a VCF or variant_summary file")

	input      = app.Flag("input", "path to the ClinVar source file").Required().Short('i').ExistingFile()
	output     = app.Flag("output", "path for the cache store (defaults next to the input)").Short('o').String()
	debug      = app.Flag("debug", "log SQL statements").Bool()
	noProgress = app.Flag("no-progress", "disable the progress bar").Bool()
)

func main() {
	app.UsageTemplate(kingpin.CompactUsageTemplate).Version("1.0.0")
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		if errors.Is(err, progress.ErrCancelled) {
			logger.Warn("cache build cancelled, no cache written")
			os.Exit(130)
		}
		logger.Fatal("cache build failed", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	outputPath := *output
	if outputPath == "" {
		outputPath = filepath.Join(filepath.Dir(*input), clinvar.CacheFilename)
	}

	info, err := os.Stat(*input)
	if err != nil {
		return err
	}
	logger.Info("building clinvar cache",
		zap.String("input", *input),
		zap.String("output", outputPath),
		zap.String("size", humanize.Bytes(uint64(info.Size()))))

	var flag progress.Flag
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		flag.Cancel()
	}()

	opts := clinvar.BuildOptions{Token: &flag, Debug: *debug}
	var bar *pb.ProgressBar
	if !*noProgress {
		bar = pb.Full.Start64(info.Size())
		bar.Set(pb.Bytes, true)
		opts.OnProgress = func(percent int, units int64, etaSeconds float64) {
			bar.SetCurrent(units)
		}
	}

	summary, err := clinvar.BuildCache(context.Background(), *input, outputPath, opts)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	logger.Info("cache build complete",
		zap.String("output", outputPath),
		zap.String("source_hash", summary.FileHashSHA256),
		zap.String("variants", humanize.Comma(summary.VariantCount)))
	return nil
}
