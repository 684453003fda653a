// Package advisor turns scan failure codes into a user-facing message and an
// ordered list of things to try.
package advisor

import (
	"strings"

	"scanbridge/internal/scanerr"
)

var messages = map[scanerr.Code]string{
	scanerr.ScannerNotFound:            "The selected scanner was not found. Run discovery again and pick a listed device.",
	scanerr.PluginNotInitialized:       "The scanning service has not been initialised.",
	scanerr.BufferTooSmall:             "The result buffer is too small for the scanner response.",
	scanerr.UnknownScannerError:        "An unexpected scanner error occurred.",
	scanerr.ScannerBusy:                "The scanner is busy or in use by another application.",
	scanerr.ScannerOffline:             "The scanner is offline.",
	scanerr.ScannerTimeout:             "The scanner did not respond in time.",
	scanerr.ScannerConnectionFailed:    "Could not connect to the scanner.",
	scanerr.ScannerAccessDenied:        "Access to the scanner was denied.",
	scanerr.NetworkScannerUnreachable:  "The network scanner cannot be reached.",
	scanerr.NoPaper:                    "There is no paper in the scanner.",
	scanerr.PaperJam:                   "Paper is jammed in the scanner.",
	scanerr.CoverOpen:                  "The scanner cover is open.",
	scanerr.ScannerItemNotFound:        "The scanner has no flatbed or document feeder available.",
	scanerr.ScannerPropertiesFailed:    "The scan settings could not be applied.",
	scanerr.DataTransferFailed:         "The scanner does not support image transfer.",
	scanerr.ScanOperationFailed:        "The scan operation failed.",
	scanerr.ScanFailed:                 "The scan produced no image.",
	scanerr.NetworkDown:                "The network connection is down.",
	scanerr.NetworkUnreachable:         "The scanner's network is unreachable.",
	scanerr.ScannerConnectionRefused:   "The scanner refused the connection.",
	scanerr.ScannerHostUnreachable:     "The scanner's address is unreachable.",
	scanerr.ScannerHostDown:            "The scanner appears to be switched off.",
	scanerr.ScannerConnectionReset:     "The scanner reset the connection.",
	scanerr.ScannerConnectionAborted:   "The connection to the scanner was aborted.",
	scanerr.ScannerAddressNotAvailable: "The scanner address is not available.",
	scanerr.InvalidScannerAddress:      "The scanner address is invalid.",
	scanerr.ESCLBadRequest:             "The scanner rejected the eSCL request.",
	scanerr.ESCLUnauthorized:           "The scanner requires authentication for eSCL.",
	scanerr.ESCLForbidden:              "The scanner forbids eSCL access.",
	scanerr.ESCLNotFound:               "The scanner does not expose the eSCL service.",
	scanerr.ESCLConflict:               "The scanner reported a conflicting eSCL job.",
	scanerr.ESCLInternalServerError:    "The scanner reported an internal eSCL error.",
	scanerr.ESCLServiceUnavailable:     "The scanner's eSCL service is unavailable.",
}

type bucket struct {
	topics      []string
	suggestions []string
}

// Buckets are checked in order and every matching bucket contributes.
var buckets = []bucket{
	{
		topics: []string{"NETWORK", "WIFI"},
		suggestions: []string{
			"Check that this computer is connected to the network",
			"Restart the router",
			"Make sure the scanner is connected to the same Wi-Fi network",
		},
	},
	{
		topics: []string{"TIMEOUT"},
		suggestions: []string{
			"Move the scanner closer to the router",
			"Try again when network traffic is lower",
			"Increase the connection timeout",
		},
	},
	{
		topics: []string{"UNREACHABLE", "HOST_DOWN"},
		suggestions: []string{
			"Check the scanner's IP address",
			"Restart the scanner",
			"Check that a firewall is not blocking the scanner",
		},
	},
	{
		topics: []string{"BUSY", "LOCKED"},
		suggestions: []string{
			"Check whether another scan job is running",
			"Wait a moment and try again",
			"Cancel pending jobs from the scanner's control panel",
		},
	},
	{
		topics: []string{"ACCESS_DENIED", "UNAUTHORIZED"},
		suggestions: []string{
			"Review the scanner's security settings",
			"Check the user name and password",
			"Make sure your account is allowed to use the scanner",
		},
	},
	{
		topics: []string{"ESCL"},
		suggestions: []string{
			"Enable AirPrint or eSCL on the scanner",
			"Update the scanner firmware",
			"Check the eSCL settings in the scanner's web interface",
		},
	},
}

var generic = []string{
	"Update the scanner drivers",
	"Restart the computer",
	"Contact your system administrator",
}

// Advice is the rendered guidance for one code.
type Advice struct {
	Code        scanerr.Code `json:"code"`
	Message     string       `json:"message"`
	Suggestions []string     `json:"suggestions"`
}

// Advise returns the message and ordered suggestions for code. Unknown codes
// get a templated message that embeds the raw code.
func Advise(code scanerr.Code) (string, []string) {
	return Message(code), Suggestions(code)
}

// Message returns the human-readable message for code.
func Message(code scanerr.Code) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "Unknown scanner error: " + string(code)
}

// Suggestions assembles the remediation hints for code.
func Suggestions(code scanerr.Code) []string {
	upper := strings.ToUpper(string(code))
	var out []string
	for _, b := range buckets {
		for _, topic := range b.topics {
			if strings.Contains(upper, topic) {
				out = append(out, b.suggestions...)
				break
			}
		}
	}
	return append(out, generic...)
}

// For builds Advice for any error returned by a scan session.
func For(err error) Advice {
	code := scanerr.CodeOf(err)
	msg, suggestions := Advise(code)
	return Advice{Code: code, Message: msg, Suggestions: suggestions}
}
