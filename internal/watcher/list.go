package watcher

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// WindowInfo describes one capturable top-level window.
type WindowInfo struct {
	ID    xproto.Window
	Title string
	Class string
}

// ListWindows enumerates top-level windows, preferring the EWMH
// _NET_CLIENT_LIST and falling back to a QueryTree walk when the window
// manager does not maintain it.
func ListWindows() ([]WindowInfo, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	defer conn.Close()

	setup := xproto.Setup(conn)
	root := setup.DefaultScreen(conn).Root

	if windows, err := listEWMH(conn, root); err == nil && len(windows) > 0 {
		return windows, nil
	}
	return listQueryTree(conn, root)
}

func listEWMH(conn *xgb.Conn, root xproto.Window) ([]WindowInfo, error) {
	atom, err := internAtom(conn, "_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}

	reply, err := xproto.GetProperty(
		conn, false, root, atom,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to read _NET_CLIENT_LIST: %w", err)
	}

	windows := make([]WindowInfo, 0, len(reply.Value)/4)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		id := xproto.Window(uint32(reply.Value[i]) |
			uint32(reply.Value[i+1])<<8 |
			uint32(reply.Value[i+2])<<16 |
			uint32(reply.Value[i+3])<<24)

		info := describe(conn, id)
		if info.Title == "" && info.Class == "" {
			continue
		}
		windows = append(windows, info)
	}
	return windows, nil
}

func listQueryTree(conn *xgb.Conn, root xproto.Window) ([]WindowInfo, error) {
	tree, err := xproto.QueryTree(conn, root).Reply()
	if err != nil {
		return nil, err
	}

	windows := make([]WindowInfo, 0)
	for _, child := range tree.Children {
		info := describe(conn, child)
		if info.Title == "" && info.Class == "" {
			continue
		}
		windows = append(windows, info)
	}
	return windows, nil
}

func describe(conn *xgb.Conn, win xproto.Window) WindowInfo {
	info := WindowInfo{ID: win}

	if atom, err := internAtom(conn, "_NET_WM_NAME"); err == nil {
		info.Title, _ = stringProperty(conn, win, atom)
	}
	if info.Title == "" {
		if atom, err := internAtom(conn, "WM_NAME"); err == nil {
			info.Title, _ = stringProperty(conn, win, atom)
		}
	}

	// WM_CLASS is instance\0class\0; the class half names the application.
	if atom, err := internAtom(conn, "WM_CLASS"); err == nil {
		if raw, err := stringProperty(conn, win, atom); err == nil {
			parts := strings.Split(raw, "\x00")
			if len(parts) >= 2 && parts[1] != "" {
				info.Class = parts[1]
			} else if len(parts) >= 1 {
				info.Class = parts[0]
			}
		}
	}

	return info
}

func internAtom(conn *xgb.Conn, name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}

func stringProperty(conn *xgb.Conn, win xproto.Window, atom xproto.Atom) (string, error) {
	reply, err := xproto.GetProperty(
		conn, false, win, atom,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1,
	).Reply()
	if err != nil {
		return "", err
	}
	if reply.ValueLen == 0 {
		return "", fmt.Errorf("empty property")
	}
	return string(reply.Value), nil
}
