package bleuio

import "strconv"

// ErrorCode is the status reported in the "err" field of an acknowledgement.
type ErrorCode int64

const (
	Success ErrorCode = iota
	Failed
	AlreadyDone
	InProgress
	InvalidParameter
	NotAllowed
	NotConnected
	NotSupported
	NotAccepted
	Busy
	Timeout
	NotSupportedByPeer
	Canceled
	EncryptionKeyMissing
	InsufficientResources
	NotFound
	L2capNoCredits
	L2capMtuExceeded
	InsufficientBandwidth

	// UnknownError is returned for every value the dongle firmware does not document.
	UnknownError ErrorCode = -1
)

var errorCodeNames = [...]string{
	Success:               "Success",
	Failed:                "Failed",
	AlreadyDone:           "AlreadyDone",
	InProgress:            "InProgress",
	InvalidParameter:      "InvalidParameter",
	NotAllowed:            "NotAllowed",
	NotConnected:          "NotConnected",
	NotSupported:          "NotSupported",
	NotAccepted:           "NotAccepted",
	Busy:                  "Busy",
	Timeout:               "Timeout",
	NotSupportedByPeer:    "NotSupportedByPeer",
	Canceled:              "Canceled",
	EncryptionKeyMissing:  "EncryptionKeyMissing",
	InsufficientResources: "InsufficientResources",
	NotFound:              "NotFound",
	L2capNoCredits:        "L2capNoCredits",
	L2capMtuExceeded:      "L2capMtuExceeded",
	InsufficientBandwidth: "InsufficientBandwidth",
}

// ErrorCodeFromInt maps a numeric error to its named code. Never fails.
func ErrorCodeFromInt(n int64) ErrorCode {
	if n < int64(Success) || n > int64(InsufficientBandwidth) {
		return UnknownError
	}

	return ErrorCode(n)
}

func (e ErrorCode) String() string {
	if e < Success || e > InsufficientBandwidth {
		return "UnknownError"
	}

	return errorCodeNames[e]
}

// Hex renders the code the way the dongle documentation lists them (0x04 etc).
func (e ErrorCode) Hex() string {
	if e == UnknownError {
		return "unknown"
	}

	s := strconv.FormatInt(int64(e), 16)
	if len(s) < 2 {
		s = "0" + s
	}

	return "0x" + s
}
