// Command cocoapply loads a saved chromosome and applies it to an image,
// without running any evolution — the standalone filter tool.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/mwiglasz/coco/pkg/cgp"
	"github.com/mwiglasz/coco/pkg/circuitfile"
	"github.com/mwiglasz/coco/pkg/imageio"
)

// Exit codes: 1 for a malformed chromosome file or bad flags, 2 specifically
// for a chromosome whose grid shape doesn't match the circuit cocoapply
// builds, so a caller can tell "fix your file" apart from "fix your flags
// or rebuild against the same grid".
const (
	exitUsage         = 1
	exitShapeMismatch = 2
)

func main() {
	err := run()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "cocoapply:", err)

	var shapeErr *circuitfile.ShapeMismatchError
	if errors.As(err, &shapeErr) {
		os.Exit(exitShapeMismatch)
	}
	os.Exit(exitUsage)
}

func run() error {
	fs := pflag.NewFlagSet("cocoapply", pflag.ContinueOnError)
	chromosomePath := fs.StringP("chromosome", "c", "", "CGP chromosome file describing the filter")
	inputPath := fs.StringP("input", "i", "", "input image filename")
	outputPath := fs.StringP("output", "o", "", "output image filename (always written as PNG)")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	if *chromosomePath == "" {
		return errors.New("--chromosome is required")
	}
	if *inputPath == "" {
		return errors.New("--input is required")
	}
	if *outputPath == "" {
		return errors.New("--output is required")
	}

	f, err := os.Open(*chromosomePath)
	if err != nil {
		return fmt.Errorf("failed to open chromosome file: %w", err)
	}
	defer f.Close()

	circuit, err := circuitfile.Parse(f, cgp.DefaultGrid)
	var shapeErr *circuitfile.ShapeMismatchError
	switch {
	case errors.As(err, &shapeErr):
		return fmt.Errorf("chromosome does not match the expected circuit shape: %w", err)
	case err != nil:
		return fmt.Errorf("failed to parse chromosome: %w", err)
	}

	input, err := imageio.Decode(*inputPath)
	if err != nil {
		return fmt.Errorf("failed to load input image: %w", err)
	}

	output := imageio.ApplyCircuit(circuit, input)

	fmt.Printf("output: %s\n", *outputPath)
	if err := imageio.EncodePNG(*outputPath, output); err != nil {
		return fmt.Errorf("failed to write output image: %w", err)
	}
	return nil
}
