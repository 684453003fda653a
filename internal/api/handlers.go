package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"scanbridge/internal/acquisition"
	"scanbridge/internal/advisor"
	"scanbridge/internal/discovery"
	"scanbridge/internal/scanerr"
	"scanbridge/internal/session"
)

type scanRequest struct {
	SnapshotID string                `json:"snapshot_id"`
	Name       string                `json:"name"`
	Settings   *acquisition.Settings `json:"settings"`
	Output     string                `json:"output"`
}

type scanResponse struct {
	SnapshotID   string               `json:"snapshot_id,omitempty"`
	Device       discovery.Device     `json:"device"`
	Settings     acquisition.Settings `json:"settings"`
	Output       string               `json:"output"`
	BytesWritten int64                `json:"bytes_written"`
}

type errorResponse struct {
	Code        scanerr.Code `json:"code"`
	Message     string       `json:"message"`
	Suggestions []string     `json:"suggestions"`
	Detail      string       `json:"detail,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// handleScanners runs a discovery pass.
// GET /api/scanners
func (s *Server) handleScanners(c *gin.Context) {
	snap := s.svc.Discover(c.Request.Context())
	s.writeSnapshot(c, snap, discovery.FormatJSON)
}

// handleSnapshot returns a cached snapshot in the requested encoding.
// GET /api/snapshots/:id?format=json|plist
func (s *Server) handleSnapshot(c *gin.Context) {
	format, err := discovery.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
		return
	}
	snap, ok := s.svc.Snapshot(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, messageResponse{Message: "snapshot expired"})
		return
	}
	s.writeSnapshot(c, snap, format)
}

// handleImport stores an exported snapshot so scans can target it.
// POST /api/snapshots?format=json|plist
func (s *Server) handleImport(c *gin.Context) {
	format, err := discovery.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
		return
	}
	snap, err := discovery.Import(c.Request.Body, format)
	if err != nil {
		c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
		return
	}
	s.svc.Remember(snap)
	c.JSON(http.StatusCreated, gin.H{"id": snap.ID, "devices": len(snap.Devices)})
}

// handleScan scans from a device by name.
// POST /api/scan
func (s *Server) handleScan(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
		return
	}
	var req scanRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, messageResponse{Message: "name is required"})
		return
	}

	sreq := session.Request{Name: req.Name, Settings: req.Settings, OutputPath: req.Output}
	var res session.Result
	if req.SnapshotID != "" {
		res, err = s.svc.ScanFrom(c.Request.Context(), req.SnapshotID, sreq)
	} else {
		res, err = s.svc.Scan(c.Request.Context(), sreq)
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, newErrorResponse(err))
		return
	}
	c.JSON(http.StatusOK, scanResponse{
		SnapshotID:   req.SnapshotID,
		Device:       res.Device,
		Settings:     res.Settings,
		Output:       res.OutputPath,
		BytesWritten: res.BytesWritten,
	})
}

// handleError explains a failure code.
// GET /api/errors/:code
func (s *Server) handleError(c *gin.Context) {
	code := scanerr.Code(strings.ToUpper(strings.TrimSpace(c.Param("code"))))
	msg, suggestions := advisor.Advise(code)
	c.JSON(http.StatusOK, errorResponse{Code: code, Message: msg, Suggestions: suggestions})
}

func (s *Server) writeSnapshot(c *gin.Context, snap discovery.Snapshot, format discovery.Format) {
	data, err := discovery.Marshal(snap, format)
	if err != nil {
		s.log.Error("encode snapshot", "err", err)
		c.JSON(http.StatusInternalServerError, messageResponse{Message: err.Error()})
		return
	}
	c.Data(http.StatusOK, format.ContentType(), data)
}

func newErrorResponse(err error) errorResponse {
	advice := advisor.For(err)
	resp := errorResponse{Code: advice.Code, Message: advice.Message, Suggestions: advice.Suggestions}
	var se *scanerr.Error
	if errors.As(err, &se) {
		resp.Detail = se.Detail
	}
	return resp
}
