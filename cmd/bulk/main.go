package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"media-deriver/internal/app"
	"media-deriver/internal/dispatch"
	"media-deriver/internal/logging"
	"media-deriver/internal/mediatypes"
	"media-deriver/internal/startup"

	"golang.org/x/term"
)

const defaultFlushTimeout = 5 * time.Second

// cliOptions are the parsed command-line flags.
type cliOptions struct {
	folder    string
	recursive bool
	height    int
	format    mediatypes.VideoFormat
	workers   int
	remote    []string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	config, err := startup.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration: %v\n", err)
		return 1
	}
	defer logging.Sync()

	if opts.folder == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		opts.folder, err = promptFolder(os.Stdin, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading folder: %v\n", err)
			return 1
		}
	}
	if opts.folder == "" {
		fmt.Fprintln(os.Stderr, "Error: -folder is required")
		return 1
	}

	// Create a context that cancels on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := app.Build(ctx, config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer c.Runner.Cleanup()
	defer c.Reporter.Flush(defaultFlushTimeout)

	workers := config.WorkerPoolSize
	if opts.workers > 0 {
		workers = opts.workers
	}
	remote := config.RemoteWorkers
	if len(opts.remote) > 0 {
		remote = opts.remote
	}
	monitor := app.StartMemoryMonitor(config)
	defer monitor.Stop()

	pool, err := app.NewPool(c.Processor, workers, remote, config.RemoteTimeout, monitor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	assets, err := dispatch.Enumerate(ctx, c.Store, opts.folder, opts.recursive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing %s: %v\n", opts.folder, err)
		return 1
	}

	orch := dispatch.NewOrchestrator(c.Store, pool, config.Defaults)
	orch.OnProgress = func(p dispatch.Progress) {
		status := "ok"
		if p.Err != nil {
			status = "failed: " + p.Err.Error()
		}
		fmt.Printf("[%d/%d] %s %s\n", p.Completed, p.Total, p.Asset, status)
	}

	summary, err := orch.Run(ctx, assets, mediatypes.ProcessingOptions{
		ThumbnailHeight: opts.height,
		VideoFormat:     opts.format,
	})
	printSummary(os.Stdout, opts.folder, summary)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// parseFlags parses args. Zero height, format, and workers defer to the
// environment configuration.
func parseFlags(args []string, output io.Writer) (cliOptions, error) {
	var opts cliOptions
	var format, remote string

	fs := flag.NewFlagSet("bulk", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.folder, "folder", "", "folder to process")
	fs.BoolVar(&opts.recursive, "recursive", true, "include subfolders")
	fs.IntVar(&opts.height, "height", 0, "thumbnail height in pixels")
	fs.StringVar(&format, "format", "", "compressed video format (webm, mp4, mkv)")
	fs.IntVar(&opts.workers, "workers", 0, "number of concurrent assets")
	fs.StringVar(&remote, "remote", "", "comma-separated remote worker URLs")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.height < 0 {
		return cliOptions{}, fmt.Errorf("-height must not be negative")
	}
	if opts.workers < 0 {
		return cliOptions{}, fmt.Errorf("-workers must not be negative")
	}

	f, err := mediatypes.ParseVideoFormat(format)
	if err != nil {
		return cliOptions{}, err
	}
	opts.format = f
	opts.folder = strings.Trim(strings.TrimSpace(opts.folder), "/")

	for _, u := range strings.Split(remote, ",") {
		if u = strings.TrimSpace(u); u != "" {
			opts.remote = append(opts.remote, u)
		}
	}
	return opts, nil
}

func promptFolder(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Folder to process: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(line), "/"), nil
}

func printSummary(w io.Writer, folder string, s dispatch.Summary) {
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Bulk processing of %q complete\n", folder)
	fmt.Fprintf(w, "  Succeeded: %d (%d already done)\n", s.Succeeded, s.AlreadyDone)
	fmt.Fprintf(w, "  Failed:    %d\n", s.Failed)
	fmt.Fprintf(w, "  Skipped:   %d\n", s.Skipped)
}
