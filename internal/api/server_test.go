package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"scanbridge/internal/acquisition"
	"scanbridge/internal/discovery"
	"scanbridge/internal/scanerr"
	"scanbridge/internal/service"
	"scanbridge/internal/session"
)

type staticDiscoverer struct {
	devices []discovery.Device
}

func (d staticDiscoverer) Discover(context.Context) discovery.Snapshot {
	return discovery.Snapshot{ID: "snap-42", Devices: d.devices, Updated: time.Unix(1700000000, 0).UTC()}
}

type emptyTray struct{}

func (emptyTray) Category() acquisition.Category                            { return acquisition.CategoryFeeder }
func (emptyTray) ApplySettings(context.Context, acquisition.Settings) error { return nil }
func (emptyTray) Close() error                                              { return nil }
func (emptyTray) Transfer(context.Context, string) (int64, error) {
	return 0, &acquisition.DeviceError{Condition: acquisition.ConditionPaperEmpty}
}

type oneDevice struct{ item acquisition.Item }

func (d oneDevice) ChildItems(context.Context) ([]acquisition.Item, error) {
	return []acquisition.Item{d.item}, nil
}
func (oneDevice) Close() error { return nil }

type fakeAcquisition struct{ item acquisition.Item }

func (fakeAcquisition) EnumerateLocalDevices(context.Context) ([]acquisition.LocalDevice, error) {
	return nil, nil
}

func (f fakeAcquisition) OpenDevice(context.Context, string) (acquisition.Device, error) {
	return oneDevice{item: f.item}, nil
}

type pageItem struct{}

func (pageItem) Category() acquisition.Category                            { return acquisition.CategoryFlatbed }
func (pageItem) ApplySettings(context.Context, acquisition.Settings) error { return nil }
func (pageItem) Close() error                                              { return nil }
func (pageItem) Transfer(_ context.Context, path string) (int64, error) {
	return 4, os.WriteFile(path, []byte("%PDF"), 0o644)
}

func newTestServer(t *testing.T, item acquisition.Item) *Server {
	t.Helper()
	scanCfg := session.DefaultConfig()
	scanCfg.OutputDir = t.TempDir()
	disc := staticDiscoverer{devices: []discovery.Device{
		{Identity: "usb-0001", Name: "Office WIA Scanner", Origin: discovery.OriginLocal},
	}}
	svc := service.New(disc, session.NewRunner(fakeAcquisition{item: item}, scanCfg), time.Minute)
	srv := NewServer(svc, Config{Listen: "127.0.0.1:0", Mode: gin.TestMode})
	srv.log = log.New(io.Discard)
	return srv
}

func do(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestScannersReturnsSnapshot(t *testing.T) {
	h := newTestServer(t, pageItem{}).Handler()
	rec := do(t, h, http.MethodGet, "/api/scanners", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	snap, err := discovery.Import(rec.Body, discovery.FormatJSON)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.ID != "snap-42" || len(snap.Devices) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestSnapshotAsPlist(t *testing.T) {
	h := newTestServer(t, pageItem{}).Handler()
	do(t, h, http.MethodGet, "/api/scanners", nil)

	rec := do(t, h, http.MethodGet, "/api/snapshots/snap-42?format=plist", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-plist" {
		t.Fatalf("unexpected content type %q", ct)
	}
	snap, err := discovery.Import(rec.Body, discovery.FormatPlist)
	if err != nil || snap.Devices[0].Name != "Office WIA Scanner" {
		t.Fatalf("plist round trip failed: %v %+v", err, snap)
	}
}

func TestUnknownSnapshotIs404(t *testing.T) {
	h := newTestServer(t, pageItem{}).Handler()
	if rec := do(t, h, http.MethodGet, "/api/snapshots/nope", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/snapshots/nope?format=xml", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad format, got %d", rec.Code)
	}
}

func TestScanSuccess(t *testing.T) {
	h := newTestServer(t, pageItem{}).Handler()
	do(t, h, http.MethodGet, "/api/scanners", nil)

	rec := do(t, h, http.MethodPost, "/api/scan", []byte(`{"name":"Office WIA Scanner","settings":{"output_format":"pdf"}}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp scanResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.BytesWritten != 4 || !strings.HasSuffix(resp.Output, ".pdf") {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestScanEmptyTrayReturnsAdvice(t *testing.T) {
	h := newTestServer(t, emptyTray{}).Handler()
	do(t, h, http.MethodGet, "/api/scanners", nil)

	rec := do(t, h, http.MethodPost, "/api/scan", []byte(`{"snapshot_id":"snap-42","name":"Office WIA Scanner"}`))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var resp errorResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != scanerr.NoPaper || resp.Message == "" || len(resp.Suggestions) == 0 {
		t.Fatalf("unexpected error body %+v", resp)
	}
}

func TestScanExpiredSnapshot(t *testing.T) {
	h := newTestServer(t, pageItem{}).Handler()
	rec := do(t, h, http.MethodPost, "/api/scan", []byte(`{"snapshot_id":"gone","name":"Office WIA Scanner"}`))
	var resp errorResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity || resp.Code != scanerr.ScannerNotFound || resp.Detail != "snapshot expired" {
		t.Fatalf("unexpected response %d %+v", rec.Code, resp)
	}
}

func TestScanRequiresName(t *testing.T) {
	h := newTestServer(t, pageItem{}).Handler()
	if rec := do(t, h, http.MethodPost, "/api/scan", []byte(`{}`)); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/scan", []byte(`{`)); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestImportThenScan(t *testing.T) {
	h := newTestServer(t, pageItem{}).Handler()
	var buf bytes.Buffer
	snap := discovery.Snapshot{ID: "imported-1", Devices: []discovery.Device{
		{Identity: "usb-0001", Name: "Desk Scanner", Origin: discovery.OriginLocal},
	}}
	if err := discovery.Export(&buf, snap, discovery.FormatJSON); err != nil {
		t.Fatalf("export: %v", err)
	}
	if rec := do(t, h, http.MethodPost, "/api/snapshots", buf.Bytes()); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec := do(t, h, http.MethodPost, "/api/scan", []byte(`{"snapshot_id":"imported-1","name":"Desk Scanner"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	dup := []byte(`{"version":1,"snapshot":{"id":"imported-2","devices":[
		{"identity":"usb-0001","name":"Desk Scanner"},{"identity":"usb-0001","name":"Desk Scanner 2"}]}}`)
	if rec := do(t, h, http.MethodPost, "/api/snapshots", dup); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate identities, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/api/scan", []byte(`{"snapshot_id":"imported-2","name":"Desk Scanner"}`))
	if rec.Code == http.StatusOK {
		t.Fatal("rejected snapshot was remembered")
	}
}

func TestErrorAdvice(t *testing.T) {
	h := newTestServer(t, pageItem{}).Handler()
	rec := do(t, h, http.MethodGet, "/api/errors/scanner_busy", nil)
	var resp errorResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != scanerr.ScannerBusy || len(resp.Suggestions) == 0 {
		t.Fatalf("unexpected advice %+v", resp)
	}

	rec = do(t, h, http.MethodGet, "/api/errors/WHATEVER", nil)
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Unknown scanner error: WHATEVER" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if err := (Config{Listen: "nope", Mode: gin.ReleaseMode}).Validate(); err == nil {
		t.Fatalf("expected invalid listen address")
	}
	if err := (Config{Listen: ":8765", Mode: "loud"}).Validate(); err == nil {
		t.Fatalf("expected invalid mode")
	}
}
