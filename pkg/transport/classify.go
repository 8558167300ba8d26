package transport

import (
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// ErrMalformedURL marks an endpoint the client can never reach as
// given. Unrecoverable: retrying the same URL cannot succeed.
var ErrMalformedURL = errors.New("malformed backend url")

// Recoverable classifies a transport failure. Timeouts, DNS failures,
// unreachable hosts, lost connections and resource exhaustion are worth
// retrying; malformed-URL-class errors are not. Unknown errors default
// to recoverable, favoring availability over silent permanent failure.
func Recoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMalformedURL) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) {
		return true
	}
	for _, errno := range []syscall.Errno{
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.EPIPE,
		syscall.EHOSTUNREACH,
		syscall.ENETUNREACH,
		syscall.EAGAIN,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}

	// The websocket library reports a bad ws:// URL only as an error
	// string.
	if strings.Contains(err.Error(), "malformed ws or wss URL") {
		return false
	}
	return true
}
