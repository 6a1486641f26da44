package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shogun-panel/panel/internal/tui/app"
	"github.com/shogun-panel/panel/internal/tui/client"
)

func main() {
	wsURL := flag.String("url", "ws://127.0.0.1:30001/ws/monitor", "monitor WebSocket URL of the panel server")
	logFile := flag.String("log", "", "write client logs to this file")
	flag.Parse()

	// The alt screen owns stdout, so logs go to a file or nowhere.
	if *logFile != "" {
		f, err := tea.LogToFile(*logFile, "panel-tui")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	ws := client.NewWSClient(*wsURL)
	api := client.NewHTTPClient(deriveHTTPBase(*wsURL))

	p := tea.NewProgram(app.New(ws, api), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// deriveHTTPBase converts ws://host:port/prefix/ws/monitor to http://host:port/prefix.
func deriveHTTPBase(wsURL string) string {
	u, err := url.Parse(wsURL)
	if err != nil || u.Host == "" {
		return "http://127.0.0.1:30001"
	}
	scheme := "http"
	if strings.HasPrefix(u.Scheme, "wss") {
		scheme = "https"
	}
	prefix := strings.TrimSuffix(strings.TrimSuffix(u.Path, "/ws/monitor"), "/ws")
	return fmt.Sprintf("%s://%s%s", scheme, u.Host, strings.TrimRight(prefix, "/"))
}
