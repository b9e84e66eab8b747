// bmtool is a CLI utility for inspecting and optimizing BM model documents.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bastecklein/bmloader/internal/config"
	"github.com/bastecklein/bmloader/internal/logger"
	"github.com/bastecklein/bmloader/pkg/bmscript"
	"github.com/bastecklein/bmloader/pkg/optimize"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(os.Getenv("BMTOOL_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "vars":
		cmdVars(args)
	case "analyze":
		cmdAnalyze(args, cfg)
	case "merge":
		cmdMerge(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`bmtool - BM model document utility

Usage:
  bmtool <command> [options]

Commands:
  info <file.bm>              Show model statistics
  vars <file.bm>              List script variables and animations
  analyze <file.bm>           Dry-run instancing analysis and merge advice
  merge [-x] <file.bm>        Full geometry merge (dry run unless -x)

Examples:
  bmtool info model.bm
  bmtool analyze model.bm
  bmtool merge -x model.bm`)
}

// loadModel builds a model from a document file.
func loadModel(path string) *bmscript.Model {
	doc, err := bmscript.LoadDocumentFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	model, err := bmscript.NewBuilder(logger.Log).Build(doc, bmscript.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return model
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: bmtool info <file.bm>")
		os.Exit(1)
	}
	model := loadModel(args[0])

	fmt.Printf("File:        %s\n", args[0])
	fmt.Printf("Nodes:       %d\n", model.Root.CountNodes())
	fmt.Printf("Drawables:   %d\n", model.Root.CountDrawables())
	fmt.Printf("Draw calls:  %d\n", optimize.DrawCalls(model.Root))
	fmt.Printf("Variables:   %d\n", len(model.Registry.Names()))
	fmt.Printf("Animations:  %d\n", len(model.Registry.Tracks()))
	fmt.Printf("Comments:    %d\n", len(model.Comments))
}

func cmdVars(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: bmtool vars <file.bm>")
		os.Exit(1)
	}
	model := loadModel(args[0])

	fmt.Println("Variables:")
	for _, name := range model.Registry.Names() {
		v, _ := model.Registry.Get(name)
		fmt.Printf("  $%-16s %T\n", name, v)
	}
	fmt.Println("Animations:")
	for name, track := range model.Registry.Tracks() {
		fmt.Printf("  @%-16s %d instruction(s)\n", name, len(track.Instructions))
	}
}

func cmdAnalyze(args []string, cfg *config.Config) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: bmtool analyze <file.bm>")
		os.Exit(1)
	}
	model := loadModel(args[0])

	opts := optimize.DefaultInstancingOptions()
	opts.Threshold = cfg.Optimize.InstanceThreshold

	var res *optimize.InstancingResult
	if cfg.Optimize.Aggressive {
		res = optimize.AggressiveInstancing(model.Root, opts)
	} else {
		res = optimize.ConservativeInstancing(model.Root, model.Registry.Tracks(), model.Registry.NodeIndex(), opts)
	}

	fmt.Printf("Strategy:    %s (threshold %d)\n", res.Strategy, res.Threshold)
	fmt.Printf("Draw calls:  %d -> %d (saves %d)\n", res.DrawCallsBefore, res.DrawCallsAfter, res.Saved)
	fmt.Printf("Groups:      %d, protected nodes: %d\n", len(res.Groups), res.ProtectedCount)

	advice := optimize.AdviseMerge(model.Root, model.Registry.Tracks(), optimize.UsageContext{
		ExpectedInstances: 1,
		Tolerance:         optimize.ToleranceMedium,
	})
	fmt.Printf("Merge advice: recommended=%v strategy=%s risk=%s confidence=%.2f\n",
		advice.Recommended, advice.Strategy, advice.Risk, advice.Confidence)
	for _, r := range advice.Reasoning {
		fmt.Printf("  - %s\n", r)
	}
}

func cmdMerge(args []string) {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	execute := fs.Bool("x", false, "execute the merge instead of a dry run")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: bmtool merge [-x] <file.bm>")
		os.Exit(1)
	}
	model := loadModel(fs.Arg(0))

	opts := optimize.DefaultMergeOptions()
	if *execute {
		opts.DryRun = false
		opts.AllowDestructive = true
	}

	res := optimize.FullMerge(model.Root, model.Registry.Tracks(), opts)
	fmt.Printf("Can merge:   %v\n", res.CanMerge)
	fmt.Printf("Executed:    %v\n", res.Executed)
	fmt.Printf("Draw calls:  %d -> %d\n", res.DrawCallsBefore, res.DrawCallsAfter)
	fmt.Printf("Reason:      %s\n", res.Reason)
	for _, w := range res.Warnings {
		fmt.Printf("Warning:     %s\n", w)
	}
}
