// Package consoletest runs an in-process fake grandMA2 telnet console for
// tests.
//
// The fake listens on a loopback TCP port, expects the login line first,
// then answers each command line with a Reply from a configurable handler
// followed by a prompt.
package consoletest

import (
	"bufio"
	"fmt"
	"net"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

// Prompt is the default prompt the fake prints.
const Prompt = "[Channel]>"

// Telnet negotiation the fake offers on connect when Negotiate is set:
// IAC DO ECHO, IAC WILL SUPPRESS-GO-AHEAD.
var negotiation = []byte{255, 253, 1, 255, 251, 3}

var loginPattern = regexp.MustCompile(`^login "((?:[^"]|"")*)" "((?:[^"]|"")*)"$`)

// Reply is the fake's answer to one command.
type Reply struct {
	Text     string        // Output before the prompt
	NoPrompt bool          // Leave the prompt out so the client hits its idle timeout
	Delay    time.Duration // Wait before answering
	Hangup   bool          // Close the connection instead of answering
}

// Handler produces a reply for a command line.
type Handler func(cmd string) Reply

// Options configures a fake console.
type Options struct {
	User      string // Accepted user; default "administrator"
	Password  string // Accepted password; default "admin"
	Banner    string // Sent on connect before login
	Negotiate bool   // Send telnet option negotiation on connect
	Handler   Handler
}

// Console is a running fake console.
type Console struct {
	Host string
	Port int

	listener net.Listener
	opts     Options

	mu          sync.Mutex
	handler     Handler
	refuse      bool
	connections []net.Conn
	commands    []string
	logins      int
	failed      int
	telnetReply [][]byte

	wg sync.WaitGroup
}

// Start launches a fake console and closes it when the test ends.
func Start(t testing.TB, opts Options) *Console {
	t.Helper()

	if opts.User == "" {
		opts.User = "administrator"
	}
	if opts.Password == "" {
		opts.Password = "admin"
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	addr := listener.Addr().(*net.TCPAddr)
	c := &Console{
		Host:     addr.IP.String(),
		Port:     addr.Port,
		listener: listener,
		opts:     opts,
		handler:  opts.Handler,
	}

	c.wg.Add(1)
	go c.acceptLoop()

	t.Cleanup(c.Close)
	return c
}

// Addr returns host:port.
func (c *Console) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// SetHandler replaces the command handler.
func (c *Console) SetHandler(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// RefuseLogins makes subsequent logins fail regardless of credentials.
func (c *Console) RefuseLogins(refuse bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refuse = refuse
}

// Commands returns the non-login lines received so far, in order.
func (c *Console) Commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.commands...)
}

// Logins returns the number of accepted logins.
func (c *Console) Logins() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logins
}

// FailedLogins returns the number of rejected logins.
func (c *Console) FailedLogins() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// TelnetReplies returns the negotiation bytes clients sent back.
func (c *Console) TelnetReplies() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.telnetReply...)
}

// Broadcast writes text to every connected client, as the console does
// for log output.
func (c *Console) Broadcast(text string) {
	c.mu.Lock()
	conns := append([]net.Conn(nil), c.connections...)
	c.mu.Unlock()
	for _, conn := range conns {
		conn.Write([]byte(text))
	}
}

// DropConnections closes every client connection but keeps listening.
func (c *Console) DropConnections() {
	c.mu.Lock()
	conns := c.connections
	c.connections = nil
	c.mu.Unlock()
	for _, conn := range conns {
		conn.Close()
	}
}

// Close stops the listener and all connections.
func (c *Console) Close() {
	c.listener.Close()
	c.DropConnections()
	c.wg.Wait()
}

// WaitForCommands blocks until n commands were received.
func (c *Console) WaitForCommands(t testing.TB, n int, timeout time.Duration) []string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		cmds := c.Commands()
		if len(cmds) >= n {
			return cmds
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d commands, got %d: %q", n, len(cmds), cmds)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (c *Console) acceptLoop() {
	defer c.wg.Done()

	for {
		conn, err := c.listener.Accept()
		if err != nil {
			return
		}

		c.mu.Lock()
		c.connections = append(c.connections, conn)
		c.mu.Unlock()

		c.wg.Add(1)
		go c.handleConnection(conn)
	}
}

func (c *Console) handleConnection(conn net.Conn) {
	defer c.wg.Done()
	defer conn.Close()

	if c.opts.Negotiate {
		conn.Write(negotiation)
	}
	if c.opts.Banner != "" {
		conn.Write([]byte(c.opts.Banner + "\r\n"))
	}

	reader := bufio.NewReader(conn)
	loggedIn := false
	for {
		raw, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line := c.stripTelnet(raw)
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		if m := loginPattern.FindStringSubmatch(line); m != nil {
			loggedIn = c.login(conn, unquote(m[1]), unquote(m[2]))
			continue
		}
		if !loggedIn {
			conn.Write([]byte("Please login first\r\n"))
			continue
		}

		c.mu.Lock()
		c.commands = append(c.commands, line)
		handler := c.handler
		c.mu.Unlock()

		reply := Reply{}
		if handler != nil {
			reply = handler(line)
		}
		if reply.Delay > 0 {
			time.Sleep(reply.Delay)
		}
		if reply.Hangup {
			return
		}

		var out strings.Builder
		out.WriteString(line + "\r\n")
		if reply.Text != "" {
			out.WriteString(reply.Text + "\r\n")
		}
		if !reply.NoPrompt {
			out.WriteString("\x1b[32m" + Prompt + "\x1b[0m")
		}
		if _, err := conn.Write([]byte(out.String())); err != nil {
			return
		}
	}
}

func (c *Console) login(conn net.Conn, user, password string) bool {
	c.mu.Lock()
	ok := !c.refuse && user == c.opts.User && password == c.opts.Password
	if ok {
		c.logins++
	} else {
		c.failed++
	}
	c.mu.Unlock()

	if !ok {
		conn.Write([]byte("Login failed for user '" + user + "'\r\n"))
		return false
	}
	conn.Write([]byte("Logged in as User '" + user + "'\r\n" + Prompt))
	return true
}

// stripTelnet removes client negotiation replies from a line, recording
// them.
func (c *Console) stripTelnet(line string) string {
	b := []byte(line)
	var out []byte
	for i := 0; i < len(b); i++ {
		if b[i] == 255 && i+2 < len(b) {
			c.mu.Lock()
			c.telnetReply = append(c.telnetReply, []byte{b[i], b[i+1], b[i+2]})
			c.mu.Unlock()
			i += 2
			continue
		}
		out = append(out, b[i])
	}
	return string(out)
}

func unquote(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}
