package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"gateserver/handler"
	"gateserver/metrics"
	"gateserver/util/log"

	"github.com/benbjohnson/clock"
)

const (
	DEADLINE    = 60 * time.Second
	BUFFER_SIZE = 8192
	SERVER_NAME = "GateServer"

	// 请求行加请求头的上限，超过则直接断开
	MAX_REQUEST_SIZE = BUFFER_SIZE
)

var (
	ErrRequestTooLarge = errors.New("request too large")
)

// limitedReader fails with ErrRequestTooLarge once n bytes have been read.
type limitedReader struct {
	r io.Reader
	n int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.n <= 0 {
		return 0, ErrRequestTooLarge
	}
	if int64(len(p)) > l.n {
		p = p[:l.n]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	return n, err
}

type State int32

const (
	StateAccepted State = iota
	StateReading
	StateParsing
	StateDispatching
	StateWriting
	StateClosed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateReading:
		return "reading"
	case StateParsing:
		return "parsing"
	case StateDispatching:
		return "dispatching"
	case StateWriting:
		return "writing"
	case StateClosed:
		return "closed"
	case StateTimedOut:
		return "timed_out"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

func (s State) terminal() bool {
	return s == StateClosed || s == StateTimedOut
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req *handler.Request) *handler.Response
}

// Connection serves exactly one request on an accepted socket, then closes
// it. The deadline runs from accept and closes the socket in any state.
type Connection struct {
	id         int64
	conn       net.Conn
	dispatcher Dispatcher

	mu    sync.Mutex
	state State
	timer *clock.Timer
	done  chan struct{}
}

func NewConnection(id int64, conn net.Conn, dispatcher Dispatcher, deadline time.Duration, clk clock.Clock) *Connection {
	c := &Connection{
		id:         id,
		conn:       conn,
		dispatcher: dispatcher,
		state:      StateAccepted,
		done:       make(chan struct{}),
	}
	c.timer = clk.AfterFunc(deadline, c.timeout)
	return c
}

func (c *Connection) ID() int64 {
	return c.id
}

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed once the connection reaches a terminal state.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Close forces the connection closed. It is a no-op once terminal.
func (c *Connection) Close() error {
	c.finish(StateClosed)
	return nil
}

// Start runs the request through read, parse, dispatch and write. It
// returns when the handler returns, which may be after the deadline.
func (c *Connection) Start(ctx context.Context) {
	defer c.finish(StateClosed)

	if !c.transition(StateReading) {
		return
	}
	reader := &limitedReader{r: c.conn, n: MAX_REQUEST_SIZE}
	req, err := http.ReadRequest(bufio.NewReaderSize(reader, BUFFER_SIZE))
	if err != nil {
		if err != io.EOF {
			log.Infof("read request from %s: %v", c.conn.RemoteAddr(), err)
		}
		return
	}

	if !c.transition(StateParsing) {
		return
	}
	// absolute-form targets are split by ReadRequest already
	path, params := req.URL.Path, parseQuery(req.URL.RawQuery)

	if !c.transition(StateDispatching) {
		return
	}
	resp := c.dispatcher.Dispatch(ctx, &handler.Request{
		Method: req.Method,
		Url:    path,
		Params: params,
	})

	if !c.transition(StateWriting) {
		log.Infof("connection %d timed out before write, %s dropped", c.id, path)
		return
	}
	if err := c.write(req, resp); err != nil {
		log.Infof("write response to %s: %v", c.conn.RemoteAddr(), err)
	}
}

func (c *Connection) write(req *http.Request, resp *handler.Response) error {
	rsp := &http.Response{
		StatusCode:    resp.Status,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Request:       req,
		Header:        make(http.Header),
		ContentLength: int64(len(resp.Body)),
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		Close:         true,
	}
	rsp.Header.Set("Server", SERVER_NAME)
	rsp.Header.Set("Content-Type", resp.ContentType)

	w := bufio.NewWriterSize(c.conn, BUFFER_SIZE)
	if err := rsp.Write(w); err != nil {
		return err
	}
	return w.Flush()
}

// transition moves to the next state unless the connection is already
// terminal.
func (c *Connection) transition(to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.terminal() {
		return false
	}
	c.state = to
	return true
}

func (c *Connection) timeout() {
	if c.finish(StateTimedOut) {
		metrics.ConnectionTimeouts.Inc()
		log.Infof("connection %d from %s timed out", c.id, c.conn.RemoteAddr())
	}
}

func (c *Connection) finish(to State) bool {
	c.mu.Lock()
	if c.state.terminal() {
		c.mu.Unlock()
		return false
	}
	c.state = to
	c.mu.Unlock()

	c.timer.Stop()
	_ = c.conn.Close()
	close(c.done)
	return true
}

// ParseGetParams splits a request target into its path and query
// parameters. Pairs without '=' or with an empty key are skipped, as are
// pairs that fail to unescape. A repeated key keeps its last value.
func ParseGetParams(target string) (string, map[string]string) {
	path, query, _ := strings.Cut(target, "?")
	return path, parseQuery(query)
}

func parseQuery(query string) map[string]string {
	params := make(map[string]string)
	if query == "" {
		return params
	}
	for _, pair := range strings.Split(query, "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			continue
		}
		key, err := url.QueryUnescape(k)
		if err != nil {
			continue
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			continue
		}
		params[key] = value
	}
	return params
}
