package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"
	"github.com/sqweek/dialog"

	"github.com/QEStudios/dsxmnm/export"
	"github.com/QEStudios/dsxmnm/furnacetext"
	"github.com/QEStudios/dsxmnm/refengine"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "", log.Ldate|log.Ltime)

	cwd, err := os.Getwd()
	if err != nil {
		logger.Fatalf("failed to get current working directory: %v", err)
	}

	var (
		format       string
		subsongIndex int
		baseLabel    string
		mnmType      int
		loop         bool
		patternHints bool
		systems      string
		verbose      bool
	)
	pflag.StringVarP(&format, "format", "f", "dsx", `export format: "dsx" or "mnm"`)
	pflag.IntVarP(&subsongIndex, "subsong", "s", 0, "subsong index")
	pflag.StringVarP(&baseLabel, "label", "l", "Song", "DSX base label")
	pflag.IntVarP(&mnmType, "type", "t", 0, "MNM type bitmask (bit 0 = no samples, bit 1 = no pattern, bit 2 = samples-only variant)")
	pflag.BoolVar(&loop, "loop", true, "compute the loop pointer/row from the detected loop anchor")
	pflag.BoolVar(&patternHints, "pattern-hints", false, "emit MNM channel-0 order-change hints")
	pflag.StringVar(&systems, "systems", "", "comma-separated 0/1 bitmap selecting which sound chips to export (default: all)")
	pflag.BoolVarP(&verbose, "dump", "v", false, "dump the parsed song and export result with go-spew before writing output")
	pflag.Parse()

	path, err := choosePath(cwd, pflag.Args())
	if err != nil {
		if errors.Is(err, dialog.ErrCancelled) {
			logger.Printf("user cancelled the file dialog")
			os.Exit(1)
		}
		logger.Fatalf("failed to determine file path: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Fatalf("error opening file: %v", err)
	}
	defer file.Close()

	result, err := furnacetext.NewParser(file, logger).Parse()
	if err != nil {
		logger.Fatalf("parse error: %v", err)
	}
	for _, w := range result.Warnings {
		logger.Printf("warning: %s", w.String())
	}

	if verbose {
		spew.Dump(result.Song)
	}

	if subsongIndex < 0 || subsongIndex >= len(result.Song.Subsongs) {
		logger.Fatalf("subsong index %d out of range (song has %d subsongs)", subsongIndex, len(result.Song.Subsongs))
	}

	sysToExport, err := parseSystemsBitmap(systems, len(result.Song.Systems))
	if err != nil {
		logger.Fatalf("invalid --systems value: %v", err)
	}

	eng := refengine.New(result.Song, subsongIndex, loop)

	var out []byte
	var ext string
	switch strings.ToLower(format) {
	case "dsx":
		w, err := export.SaveDevSound(context.Background(), eng, sysToExport, baseLabel)
		if err != nil {
			logger.Fatalf("export error: %v", err)
		}
		out, ext = w.Bytes(), ".s"
	case "mnm":
		w, err := export.SaveMNM(context.Background(), eng, mnmType, sysToExport, loop, patternHints)
		if err != nil {
			logger.Fatalf("export error: %v", err)
		}
		out, ext = w.Bytes(), ".mnm"
	default:
		logger.Fatalf("unrecognised format %q (want \"dsx\" or \"mnm\")", format)
	}

	if verbose {
		spew.Dump(out)
	}

	outPath := strings.TrimSuffix(path, filepath.Ext(path)) + ext
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		logger.Fatalf("error writing output file: %v", err)
	}
	logger.Printf("wrote %s (%d bytes)", outPath, len(out))
}

// choosePath returns the file path either from the command-line args or
// from an interactive file dialog.
func choosePath(cwd string, args []string) (string, error) {
	if len(args) > 0 {
		path := args[0]
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("cannot get absolute path: %w", err)
		}
		if err := validatePath(absPath); err != nil {
			return "", fmt.Errorf("passed argument is not a valid path: %w", err)
		}
		return absPath, nil
	}

	path, err := dialog.
		File().
		Title("Open Furnace text export").
		Filter("Furnace text exports (*.txt)", "txt").
		SetStartDir(cwd).
		Load()
	if err != nil {
		return "", err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot get absolute path: %w", err)
	}
	if absPath == "" {
		return "", dialog.ErrCancelled
	}
	if err := validatePath(absPath); err != nil {
		return "", fmt.Errorf("dialog selection invalid: %w", err)
	}
	return absPath, nil
}

// validatePath performs simple checks to verify if a file exists or not.
func validatePath(p string) error {
	if strings.ToLower(filepath.Ext(p)) != ".txt" {
		return fmt.Errorf("file must have .txt extension")
	}
	if _, err := os.Stat(p); err != nil {
		return fmt.Errorf("cannot stat file: %w", err)
	}
	return nil
}

// parseSystemsBitmap parses a comma-separated 0/1 list into the []bool the
// exporters expect, or returns nil (export everything) for an empty flag.
func parseSystemsBitmap(s string, systemCount int) ([]bool, error) {
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	out := make([]bool, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || (v != 0 && v != 1) {
			return nil, fmt.Errorf("entry %d (%q) must be 0 or 1", i, f)
		}
		out[i] = v == 1
	}
	if len(out) != systemCount {
		return nil, fmt.Errorf("expected %d entries, got %d", systemCount, len(out))
	}
	return out, nil
}
