// Package session drives one scan against a device picked from a discovery
// snapshot, and reports every failure as a canonical scanerr code.
package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"scanbridge/internal/acquisition"
	"scanbridge/internal/discovery"
	"scanbridge/internal/logger"
	"scanbridge/internal/scanerr"
)

// Request names the device to scan from and optionally overrides settings
// and the output location.
type Request struct {
	Name       string                `json:"name"`
	Settings   *acquisition.Settings `json:"settings,omitempty"`
	OutputPath string                `json:"output,omitempty"`
}

// Result describes a finished session, successful or not.
type Result struct {
	Device       discovery.Device     `json:"device"`
	Settings     acquisition.Settings `json:"settings"`
	OutputPath   string               `json:"outputPath,omitempty"`
	BytesWritten int64                `json:"bytesWritten"`
	State        State                `json:"-"`
	Trace        []State              `json:"-"`
}

// Runner executes scan sessions against an acquisition service. A Runner is
// safe for concurrent use; each Run owns its own state.
type Runner struct {
	svc      acquisition.Service
	cfg      Config
	precheck PrecheckFunc
	client   *http.Client
	log      *log.Logger
}

// NewRunner creates a runner. svc may be nil, in which case every run fails
// with PLUGIN_NOT_INITIALIZED.
func NewRunner(svc acquisition.Service, cfg Config) *Runner {
	r := &Runner{
		svc: svc,
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.PrecheckTimeout,
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
		},
		log: logger.Named("session"),
	}
	r.precheck = r.reachability
	return r
}

// SetPrecheck replaces the network reachability check.
func (r *Runner) SetPrecheck(fn PrecheckFunc) {
	if fn == nil {
		fn = r.reachability
	}
	r.precheck = fn
}

type machine struct {
	state State
	trace []State
	log   *log.Logger
}

// to records a transition. A terminal state is final.
func (m *machine) to(next State) {
	if m.state.Terminal() {
		return
	}
	m.log.Debug("transition", "from", m.state, "to", next)
	m.state = next
	m.trace = append(m.trace, next)
}

// Run resolves req.Name against snap and scans from the matching device. It
// never re-runs discovery. Handles opened along the way are released on every
// return path.
func (r *Runner) Run(ctx context.Context, snap discovery.Snapshot, req Request) (res Result, err error) {
	m := &machine{state: StateIdle, trace: []State{StateIdle}, log: r.log}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("scan session panicked", "panic", rec)
			err = scanerr.New(scanerr.UnknownScannerError, fmt.Sprint(rec))
		}
		if err != nil {
			m.to(StateFailed)
			r.log.Warn("scan failed", "device", req.Name, "code", scanerr.CodeOf(err), "err", err)
		} else {
			m.to(StateSucceeded)
			r.log.Info("scan finished", "device", req.Name, "output", res.OutputPath, "bytes", res.BytesWritten)
		}
		res.State = m.state
		res.Trace = m.trace
	}()

	if r.svc == nil {
		return res, scanerr.New(scanerr.PluginNotInitialized, "")
	}

	m.to(StateResolving)
	dev, ok := snap.Lookup(req.Name)
	if !ok {
		return res, scanerr.New(scanerr.ScannerNotFound, req.Name)
	}
	res.Device = dev

	res.Settings = r.cfg.Merge(req.Settings, dev.IsNetwork)
	if verr := res.Settings.Validate(); verr != nil {
		return res, scanerr.Wrap(scanerr.ScannerPropertiesFailed, verr)
	}
	if dev.IsNetwork {
		if cerr := r.precheck(ctx, dev); cerr != nil {
			var se *scanerr.Error
			if errors.As(cerr, &se) {
				return res, se
			}
			return res, unreachable(cerr)
		}
	}

	m.to(StateOpening)
	device, oerr := r.svc.OpenDevice(ctx, dev.Identity)
	if oerr != nil {
		return res, openError(oerr)
	}
	defer r.release("device", device.Close)

	m.to(StateLocating)
	item, lerr := r.locateItem(ctx, device)
	if lerr != nil {
		return res, lerr
	}
	defer r.release("item", item.Close)

	m.to(StateConfiguring)
	if aerr := item.ApplySettings(ctx, res.Settings); aerr != nil {
		return res, scanerr.Wrap(scanerr.ScannerPropertiesFailed, aerr)
	}

	output, perr := r.outputPath(req.OutputPath, res.Settings.OutputFormat)
	if perr != nil {
		return res, scanerr.Wrap(scanerr.ScanOperationFailed, perr)
	}
	m.to(StateTransferring)
	n, terr := item.Transfer(ctx, output)
	if terr != nil {
		return res, transferError(terr)
	}
	if n <= 0 {
		return res, emptyTransferError(ctx, item)
	}

	res.OutputPath = output
	res.BytesWritten = n
	return res, nil
}

// locateItem selects the first flatbed or feeder child and closes the rest.
func (r *Runner) locateItem(ctx context.Context, device acquisition.Device) (acquisition.Item, error) {
	items, err := device.ChildItems(ctx)
	if err != nil {
		if code, ok := mechanicalCode(err); ok {
			return nil, scanerr.Wrap(code, err)
		}
		if acquisition.ConditionOf(err) == acquisition.ConditionOffline {
			return nil, scanerr.Wrap(scanerr.ScannerOffline, err)
		}
		return nil, scanerr.Wrap(scanerr.ScannerItemNotFound, err)
	}

	var chosen acquisition.Item
	for _, item := range items {
		if item == nil {
			continue
		}
		if chosen == nil {
			switch item.Category() {
			case acquisition.CategoryFlatbed, acquisition.CategoryFeeder:
				chosen = item
				continue
			}
		}
		r.release("unused item", item.Close)
	}
	if chosen == nil {
		return nil, scanerr.New(scanerr.ScannerItemNotFound, fmt.Sprintf("%d items, none flatbed or feeder", len(items)))
	}
	return chosen, nil
}

func (r *Runner) release(what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		r.log.Debug("release failed", "what", what, "err", err)
	}
}

func (r *Runner) outputPath(requested string, format acquisition.Format) (string, error) {
	path := requested
	if path == "" {
		path = filepath.Join(r.cfg.OutputDir, "scan-"+uuid.NewString()+format.Extension())
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("prepare output directory: %w", err)
		}
	}
	return path, nil
}

func openError(err error) *scanerr.Error {
	switch acquisition.ConditionOf(err) {
	case acquisition.ConditionAccessDenied, acquisition.ConditionBusy:
		return scanerr.Wrap(scanerr.ScannerBusy, err)
	case acquisition.ConditionOffline:
		return scanerr.Wrap(scanerr.ScannerOffline, err)
	case acquisition.ConditionTimeout:
		return scanerr.Wrap(scanerr.ScannerTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return scanerr.Wrap(scanerr.ScannerTimeout, err)
	}
	return scanerr.Wrap(scanerr.ScannerConnectionFailed, err)
}

func transferError(err error) *scanerr.Error {
	if code, ok := mechanicalCode(err); ok {
		return scanerr.Wrap(code, err)
	}
	switch acquisition.ConditionOf(err) {
	case acquisition.ConditionBusy:
		return scanerr.Wrap(scanerr.ScannerBusy, err)
	case acquisition.ConditionNoTransfer:
		return scanerr.Wrap(scanerr.DataTransferFailed, err)
	case acquisition.ConditionBufferTooSmall:
		return scanerr.Wrap(scanerr.BufferTooSmall, err)
	}
	return scanerr.Wrap(scanerr.ScanOperationFailed, err)
}

// emptyTransferError explains a transfer that reported success without data.
// A mechanical condition reported by the item wins over the generic code.
func emptyTransferError(ctx context.Context, item acquisition.Item) *scanerr.Error {
	if reporter, ok := item.(acquisition.StatusReporter); ok {
		if status := reporter.Status(ctx); status != nil {
			if code, ok := mechanicalCode(status); ok {
				return scanerr.Wrap(code, status)
			}
		}
	}
	return scanerr.New(scanerr.ScanFailed, "transfer produced no data")
}

func mechanicalCode(err error) (scanerr.Code, bool) {
	switch acquisition.ConditionOf(err) {
	case acquisition.ConditionPaperEmpty:
		return scanerr.NoPaper, true
	case acquisition.ConditionPaperJam:
		return scanerr.PaperJam, true
	case acquisition.ConditionCoverOpen:
		return scanerr.CoverOpen, true
	default:
		return "", false
	}
}
