// Package ma2protocol implements the grandMA2 telnet command-line protocol.
//
// Protocol Format:
//
//	Login (client -> console):  login "<user>" "<password>"\r\n
//	Command (client -> console): <Function> <Objects> [At <Target>] [/options]\r\n
//	Response (console -> client): free text, ANSI coloured, ending in a prompt
//	Prompt:                      [<Default keyword>]>
//
// Example Session:
//
//	CLI: login "administrator" "admin"
//	MA2: Logged in as User 'administrator'
//	MA2: [Channel]>
//	CLI: Fixture 1 Thru 10
//	MA2: [Fixture]>
//	CLI: Store Group 5
//	MA2: [Fixture]>
package ma2protocol

import (
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"time"
)

// Protocol constants.
const (
	// LineTerminator ends every line sent to the console.
	LineTerminator = "\r\n"

	// DefaultHost is the loopback console address used by onPC installs.
	DefaultHost = "127.0.0.1"

	// DefaultPort is the writable telnet command port.
	DefaultPort = 30000

	// MonitorPort is the read-only log/monitor port.
	MonitorPort = 30001

	// DefaultUser and DefaultPassword are the factory console credentials.
	DefaultUser     = "administrator"
	DefaultPassword = "admin"

	// MaxLineLength is the maximum allowed length for a command line in bytes.
	MaxLineLength = 4096

	// DefaultConnectTimeout bounds dial plus login.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultResponseTimeout bounds a single ReadResponse.
	DefaultResponseTimeout = 5 * time.Second

	// DefaultIdleTimeout ends a response when no prompt is seen but output
	// has gone quiet.
	DefaultIdleTimeout = 300 * time.Millisecond

	// DefaultQueueDepth is the number of callers that may wait behind the
	// in-flight command.
	DefaultQueueDepth = 8

	// DefaultBackoffBase and DefaultBackoffMax bound the reconnect delay.
	DefaultBackoffBase = 1 * time.Second
	DefaultBackoffMax  = 30 * time.Second

	// DefaultTranscriptSize is the number of wire lines kept per session.
	DefaultTranscriptSize = 256
)

// LoginSuccessMarker appears in console output after an accepted login.
const LoginSuccessMarker = "Logged in as User"

// LoginRejectMarkers appear in console output after a rejected login.
var LoginRejectMarkers = []string{
	"Login failed",
	"Invalid password",
	"Unknown user",
	"not allowed to login",
}

// PromptPattern matches the console prompt at the end of ANSI-stripped output.
var PromptPattern = regexp.MustCompile(`\[[^\]\r\n]*\]>\s*$`)

// Endpoint is a console address.
type Endpoint struct {
	Host string
	Port int
}

// String returns host:port.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Credentials authenticate a session. The password is only ever written to
// the wire inside the login line.
type Credentials struct {
	User     string
	Password string
}

// String redacts the password.
func (c Credentials) String() string {
	return c.User + ":***"
}

// LogValue implements slog.LogValuer so credentials never leak into logs.
func (c Credentials) LogValue() slog.Value {
	return slog.StringValue(c.String())
}

// DefaultCredentials returns the factory console login.
func DefaultCredentials() Credentials {
	return Credentials{User: DefaultUser, Password: DefaultPassword}
}
