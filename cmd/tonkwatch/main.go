// Command tonkwatch is a debug observer: it sends joinTable for its -user
// id (the server seats that id like any other player, balance permitting;
// there is no spectator mode) and renders every event it receives as a
// scrolling log plus a current-state summary panel, for watching a table
// live without a full player client. It sends no in-round actions.
//
// Grounded on the teacher's cmd/client/main.go (flag-parsed connection
// target, a bubbletea program driven by a background event goroutine) and
// pkg/ui's Model/Update/View split and style palette, reduced from a full
// interactive poker client down to an observer.
package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

func main() {
	var (
		addr    string
		tableID string
		userID  string
	)
	flag.StringVar(&addr, "addr", "127.0.0.1:8080", "tonksrv host:port")
	flag.StringVar(&tableID, "table", "", "Table id to watch")
	flag.StringVar(&userID, "user", "tonkwatch", "Observer user id sent on join")
	flag.Parse()

	if tableID == "" {
		fmt.Fprintln(os.Stderr, "tonkwatch: -table is required")
		os.Exit(1)
	}

	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws", RawQuery: "userId=" + url.QueryEscape(userID)}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tonkwatch: dial %s: %v\n", u.String(), err)
		os.Exit(1)
	}
	defer conn.Close()

	model := newModel(conn, tableID, userID)
	p := tea.NewProgram(model, tea.WithAltScreen())
	go model.pump(p)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tonkwatch: %v\n", err)
		os.Exit(1)
	}
}
