package x11

import (
	"encoding/binary"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"
)

var errNoActiveWindow = errors.New("no active window found")

// nativeClient talks to the X server directly over one long-lived connection.
type nativeClient struct {
	mu             sync.Mutex
	conn           *xgb.Conn
	root           xproto.Window
	atoms          map[string]xproto.Atom
	hasScreensaver bool
}

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

func newNativeClient() (*nativeClient, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, err
	}

	setup := xproto.Setup(conn)
	c := &nativeClient{
		conn:  conn,
		root:  setup.DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom, len(atomNames)),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, err
		}
		c.atoms[name] = reply.Atom
	}

	// MIT-SCREEN-SAVER carries the idle counter.
	c.hasScreensaver = screensaver.Init(conn) == nil
	return c, nil
}

func (c *nativeClient) close() {
	c.conn.Close()
}

type nativeWindow struct {
	title    string
	instance string
	class    string
	pid      int
}

func (c *nativeClient) focusedWindow() (*nativeWindow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.activeWindow()
	if err != nil {
		return nil, err
	}

	instance, class := decodeWMClass(c.property(id, c.atoms["WM_CLASS"], xproto.AtomString, 256))
	return &nativeWindow{
		title:    c.windowName(id),
		instance: instance,
		class:    class,
		pid:      c.windowPID(id),
	}, nil
}

func (c *nativeClient) idleTime() (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := screensaver.QueryInfo(c.conn, xproto.Drawable(c.root)).Reply()
	if err != nil {
		return 0, err
	}
	return time.Duration(reply.MsSinceUserInput) * time.Millisecond, nil
}

func (c *nativeClient) property(win xproto.Window, atom, atomType xproto.Atom, length uint32) []byte {
	reply, err := xproto.GetProperty(c.conn, false, win, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil
	}
	return reply.Value
}

// activeWindow prefers the EWMH active window and falls back to the input
// focus, walked up to its top-level parent. Window managers briefly report a
// nameless window during focus changes, so a few attempts are made.
func (c *nativeClient) activeWindow() (xproto.Window, error) {
	for i := 0; i < 3; i++ {
		if data := c.property(c.root, c.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1); len(data) >= 4 {
			id := xproto.Window(binary.LittleEndian.Uint32(data))
			if id != 0 && c.hasName(id) {
				return id, nil
			}
		}

		if reply, err := xproto.GetInputFocus(c.conn).Reply(); err == nil {
			id := reply.Focus
			if id != 0 && id != c.root {
				top := c.topLevel(id)
				if top != 0 && c.hasName(top) {
					return top, nil
				}
			}
		}

		time.Sleep(20 * time.Millisecond)
	}
	return 0, errNoActiveWindow
}

func (c *nativeClient) topLevel(win xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(c.conn, win).Reply()
		if err != nil || reply.Parent == c.root || reply.Parent == 0 {
			return win
		}
		win = reply.Parent
	}
}

func (c *nativeClient) hasName(win xproto.Window) bool {
	if len(c.property(win, c.atoms["_NET_WM_NAME"], c.atoms["UTF8_STRING"], 1)) > 0 {
		return true
	}
	return len(c.property(win, c.atoms["WM_NAME"], xproto.AtomString, 1)) > 0
}

func (c *nativeClient) windowName(win xproto.Window) string {
	if data := c.property(win, c.atoms["_NET_WM_NAME"], c.atoms["UTF8_STRING"], 256); len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	if data := c.property(win, c.atoms["WM_NAME"], xproto.AtomString, 256); len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	return ""
}

func (c *nativeClient) windowPID(win xproto.Window) int {
	data := c.property(win, c.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if len(data) < 4 {
		return 0
	}
	return int(binary.LittleEndian.Uint32(data))
}

// decodeWMClass splits the NUL-separated WM_CLASS value into instance and
// class.
func decodeWMClass(data []byte) (instance, class string) {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = parts[0]
	}
	if len(parts) >= 2 {
		class = parts[1]
	}
	return instance, class
}
