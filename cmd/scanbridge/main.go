package main

import (
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

	"scanbridge/internal/acquisition"
	"scanbridge/internal/advisor"
	"scanbridge/internal/api"
	"scanbridge/internal/config"
	"scanbridge/internal/discovery"
	"scanbridge/internal/logger"
	"scanbridge/internal/scanerr"
	"scanbridge/internal/service"
	"scanbridge/internal/session"
)

const usage = `scanbridge - scanner discovery and acquisition bridge

Usage:
  scanbridge discover [-config file] [-format json|plist] [-o file] [-timeout d]
  scanbridge scan     -name "Scanner" [-snapshot file] [-dpi n] [-color mode] [-type fmt] [-o file]
  scanbridge advise   CODE
  scanbridge serve    [-config file] [-listen addr]
  scanbridge help
`

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// backend is the platform acquisition binding. Builds without one report no
// local devices and cannot open any.
var backend acquisition.Service = acquisition.Unavailable{}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return nil
	}

	switch args[0] {
	case "discover":
		return runDiscover(ctx, args[1:])
	case "scan":
		return runScan(ctx, args[1:])
	case "advise":
		return runAdvise(args[1:])
	case "serve":
		return runServe(ctx, args[1:])
	case "help", "--help", "-h":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("config", config.DefaultPath, "path to the YAML config file")
	return fs, path
}

func setup(path string) (config.Config, *service.Service, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		return cfg, nil, err
	}
	svc := service.Build(backend, cfg.Discovery, cfg.Scan, cfg.SnapshotTTL)
	return cfg, svc, nil
}

func runDiscover(ctx context.Context, args []string) error {
	fs, path := newFlagSet("discover")
	format := fs.String("format", "json", "snapshot encoding: json or plist")
	out := fs.String("o", "", "write the snapshot to a file instead of stdout")
	timeout := fs.Duration("timeout", 0, "overall discovery timeout (0 = prober budgets only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := discovery.ParseFormat(*format)
	if err != nil {
		return err
	}
	_, svc, err := setup(*path)
	if err != nil {
		return err
	}

	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}
	snap := svc.Discover(ctx)
	return writeSnapshot(snap, f, *out)
}

func writeSnapshot(snap discovery.Snapshot, format discovery.Format, out string) error {
	if out == "" {
		if err := discovery.Export(stdout, snap, format); err != nil {
			return err
		}
		fmt.Fprintln(stdout)
		return nil
	}
	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := discovery.Export(file, snap, format); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Found %d scanner(s), snapshot %s written to %s\n", len(snap.Devices), snap.ID, out)
	for _, name := range snap.Names() {
		fmt.Fprintf(stdout, "  %s\n", name)
	}
	return nil
}

func runScan(ctx context.Context, args []string) error {
	fs, path := newFlagSet("scan")
	name := fs.String("name", "", "display name of the scanner")
	snapshotFile := fs.String("snapshot", "", "resolve the name against an exported snapshot instead of discovering")
	dpi := fs.Int("dpi", 0, "resolution override")
	color := fs.String("color", "", "color mode override: color, grayscale or blackwhite")
	fileType := fs.String("type", "", "output format override: pdf, jpeg, png, tiff or bmp")
	out := fs.String("o", "", "output file (default: generated under scan.output_dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return errors.New("scan: -name is required")
	}
	override, err := settingsOverride(*dpi, *color, *fileType)
	if err != nil {
		return err
	}

	_, svc, err := setup(*path)
	if err != nil {
		return err
	}
	req := session.Request{Name: *name, Settings: override, OutputPath: *out}

	var res session.Result
	if *snapshotFile != "" {
		snap, err := readSnapshot(*snapshotFile)
		if err != nil {
			return err
		}
		svc.Remember(snap)
		res, err = svc.ScanFrom(ctx, snap.ID, req)
		if err != nil {
			return explain(err)
		}
	} else {
		svc.Discover(ctx)
		res, err = svc.Scan(ctx, req)
		if err != nil {
			return explain(err)
		}
	}
	fmt.Fprintf(stdout, "Scanned %d bytes from %s to %s\n", res.BytesWritten, res.Device.Name, res.OutputPath)
	return nil
}

func settingsOverride(dpi int, color, fileType string) (*acquisition.Settings, error) {
	if dpi == 0 && color == "" && fileType == "" {
		return nil, nil
	}
	s := &acquisition.Settings{ResolutionDPI: dpi}
	if dpi < 0 {
		return nil, fmt.Errorf("invalid -dpi %d", dpi)
	}
	if color != "" {
		mode, err := acquisition.ParseColorMode(color)
		if err != nil {
			return nil, err
		}
		s.ColorMode = mode
	}
	if fileType != "" {
		f, err := acquisition.ParseFormat(fileType)
		if err != nil {
			return nil, err
		}
		s.OutputFormat = f
	}
	return s, nil
}

func readSnapshot(path string) (discovery.Snapshot, error) {
	format := discovery.FormatJSON
	if strings.HasSuffix(strings.ToLower(path), ".plist") {
		format = discovery.FormatPlist
	}
	file, err := os.Open(path)
	if err != nil {
		return discovery.Snapshot{}, err
	}
	defer file.Close()
	snap, err := discovery.Import(file, format)
	if err != nil {
		return snap, fmt.Errorf("%s: %w", path, err)
	}
	if snap.ID == "" {
		return snap, fmt.Errorf("%s: snapshot has no id", path)
	}
	return snap, nil
}

// explain prints the advice for a failed scan and returns the error.
func explain(err error) error {
	printAdvice(stderr, advisor.For(err))
	return err
}

func printAdvice(w io.Writer, a advisor.Advice) {
	fmt.Fprintf(w, "%s: %s\n", a.Code, a.Message)
	for _, s := range a.Suggestions {
		fmt.Fprintf(w, "  - %s\n", s)
	}
}

func runAdvise(args []string) error {
	if len(args) != 1 {
		return errors.New("advise: expected exactly one error code")
	}
	code := scanerr.Code(strings.ToUpper(strings.TrimSpace(args[0])))
	msg, suggestions := advisor.Advise(code)
	printAdvice(stdout, advisor.Advice{Code: code, Message: msg, Suggestions: suggestions})
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs, path := newFlagSet("serve")
	listen := fs.String("listen", "", "override api.listen")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, svc, err := setup(*path)
	if err != nil {
		return err
	}
	apiCfg := cfg.API
	if *listen != "" {
		apiCfg.Listen = *listen
		if err := apiCfg.Validate(); err != nil {
			return err
		}
	}
	start := time.Now()
	err = api.NewServer(svc, apiCfg).Run(ctx)
	logger.DefaultLogger.Info("server stopped", "uptime", time.Since(start).Round(time.Second))
	return err
}

func init() {
	// Ensure usage text ends with a newline so we can safely print it without fmt.Println.
	if len(usage) == 0 || usage[len(usage)-1] != '\n' {
		panic(errors.New("usage string must end with a newline"))
	}
}
