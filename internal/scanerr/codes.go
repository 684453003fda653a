package scanerr

// Code is a canonical scan failure code. The set is closed; every failure a
// caller sees carries exactly one of these values.
type Code string

// Identity resolution and plumbing.
const (
	ScannerNotFound      Code = "SCANNER_NOT_FOUND"
	PluginNotInitialized Code = "PLUGIN_NOT_INITIALIZED"
	BufferTooSmall       Code = "BUFFER_TOO_SMALL"
	UnknownScannerError  Code = "UNKNOWN_SCANNER_ERROR"
)

// Connection.
const (
	ScannerBusy               Code = "SCANNER_BUSY"
	ScannerOffline            Code = "SCANNER_OFFLINE"
	ScannerTimeout            Code = "SCANNER_TIMEOUT"
	ScannerConnectionFailed   Code = "SCANNER_CONNECTION_FAILED"
	ScannerAccessDenied       Code = "SCANNER_ACCESS_DENIED"
	NetworkScannerUnreachable Code = "NETWORK_SCANNER_UNREACHABLE"
)

// Device mechanics and item selection.
const (
	NoPaper             Code = "NO_PAPER"
	PaperJam            Code = "PAPER_JAM"
	CoverOpen           Code = "COVER_OPEN"
	ScannerItemNotFound Code = "SCANNER_ITEM_NOT_FOUND"
)

// Configuration and transfer.
const (
	ScannerPropertiesFailed Code = "SCANNER_PROPERTIES_FAILED"
	DataTransferFailed      Code = "DATA_TRANSFER_FAILED"
	ScanOperationFailed     Code = "SCAN_OPERATION_FAILED"
	ScanFailed              Code = "SCAN_FAILED"
)

// Native network conditions observed while reaching a network scanner.
const (
	NetworkDown                Code = "NETWORK_DOWN"
	NetworkUnreachable         Code = "NETWORK_UNREACHABLE"
	ScannerConnectionRefused   Code = "SCANNER_CONNECTION_REFUSED"
	ScannerHostUnreachable     Code = "SCANNER_HOST_UNREACHABLE"
	ScannerHostDown            Code = "SCANNER_HOST_DOWN"
	ScannerConnectionReset     Code = "SCANNER_CONNECTION_RESET"
	ScannerConnectionAborted   Code = "SCANNER_CONNECTION_ABORTED"
	ScannerAddressNotAvailable Code = "SCANNER_ADDRESS_NOT_AVAILABLE"
	InvalidScannerAddress      Code = "INVALID_SCANNER_ADDRESS"
)

// eSCL HTTP statuses.
const (
	ESCLBadRequest          Code = "ESCL_BAD_REQUEST"
	ESCLUnauthorized        Code = "ESCL_UNAUTHORIZED"
	ESCLForbidden           Code = "ESCL_FORBIDDEN"
	ESCLNotFound            Code = "ESCL_NOT_FOUND"
	ESCLConflict            Code = "ESCL_CONFLICT"
	ESCLInternalServerError Code = "ESCL_INTERNAL_SERVER_ERROR"
	ESCLServiceUnavailable  Code = "ESCL_SERVICE_UNAVAILABLE"
)

var allCodes = []Code{
	ScannerNotFound, PluginNotInitialized, BufferTooSmall, UnknownScannerError,
	ScannerBusy, ScannerOffline, ScannerTimeout, ScannerConnectionFailed, ScannerAccessDenied, NetworkScannerUnreachable,
	NoPaper, PaperJam, CoverOpen, ScannerItemNotFound,
	ScannerPropertiesFailed, DataTransferFailed, ScanOperationFailed, ScanFailed,
	NetworkDown, NetworkUnreachable, ScannerConnectionRefused, ScannerHostUnreachable, ScannerHostDown,
	ScannerConnectionReset, ScannerConnectionAborted, ScannerAddressNotAvailable, InvalidScannerAddress,
	ESCLBadRequest, ESCLUnauthorized, ESCLForbidden, ESCLNotFound, ESCLConflict, ESCLInternalServerError, ESCLServiceUnavailable,
}

// Codes returns every known code in declaration order.
func Codes() []Code {
	out := make([]Code, len(allCodes))
	copy(out, allCodes)
	return out
}

// Known reports whether c belongs to the closed set.
func (c Code) Known() bool {
	for _, known := range allCodes {
		if known == c {
			return true
		}
	}
	return false
}
