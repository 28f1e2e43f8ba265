package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/abrezinsky/gaterace/internal/logger"
	"github.com/abrezinsky/gaterace/internal/websocket"
)

// logLevels is the order the l key cycles through
var logLevels = []string{"debug", "info", "warn", "error"}

// cycleLogLevel moves the logger to the next level in logLevels
func cycleLogLevel(appLog logger.Logger) string {
	current := strings.ToLower(appLog.GetLevel().String())
	next := logLevels[0]
	for i, l := range logLevels {
		if l == current {
			next = logLevels[(i+1)%len(logLevels)]
			break
		}
	}
	appLog.SetLevel(logger.ParseLevel(next))
	return next
}

// printKeyboardHelp displays all available keyboard shortcuts
func printKeyboardHelp() {
	fmt.Printf("\r\n%s%s  Keyboard Shortcuts:%s\r\n", bold, green, reset)
	fmt.Printf("    %sh%s      - Toggle HTTP request logging\r\n", cyan, reset)
	fmt.Printf("    %sl%s      - Cycle log level (debug → info → warn → error)\r\n", cyan, reset)
	fmt.Printf("    %ss%s      - Show connected live screens\r\n", cyan, reset)
	fmt.Printf("    %sq%s      - Quit server\r\n", cyan, reset)
	fmt.Printf("    %s?%s      - Show this help\r\n\r\n", cyan, reset)
}

// handleKey performs the action bound to a key. It reports false when the
// server should stop.
func handleKey(key byte, hub *websocket.Hub, appLog logger.Logger) bool {
	switch strings.ToLower(string(key)) {
	case "h":
		if appLog.IsHTTPLoggingEnabled() {
			appLog.DisableHTTPLogging()
			fmt.Printf("%sHTTP logging disabled%s\r\n", yellow, reset)
		} else {
			appLog.EnableHTTPLogging()
			fmt.Printf("%sHTTP logging enabled%s\r\n", green, reset)
		}
	case "l":
		fmt.Printf("%sLog level: %s%s%s\r\n", green, yellow, cycleLogLevel(appLog), reset)
	case "s":
		fmt.Printf("%sLive screens connected: %d%s\r\n", cyan, hub.ClientCount(), reset)
	case "?":
		printKeyboardHelp()
	case "q", "\x03": // Ctrl+C arrives as a byte in raw mode
		fmt.Printf("%sShutting down server...%s\r\n", yellow, reset)
		return false
	}
	return true
}

// readKeys forwards single bytes from r until r fails or ctx ends. The
// channel is closed when reading stops.
func readKeys(ctx context.Context, r io.Reader) <-chan byte {
	keys := make(chan byte)
	go func() {
		defer close(keys)
		buf := make([]byte, 1)
		for {
			n, err := r.Read(buf)
			if err != nil {
				return
			}
			if n == 0 {
				continue
			}
			select {
			case keys <- buf[0]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return keys
}

// listenForKeyboard reads single key presses from a terminal stdin until ctx
// ends or a quit key is pressed, then calls stop
func listenForKeyboard(ctx context.Context, stop context.CancelFunc, hub *websocket.Hub, appLog logger.Logger) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return
	}
	defer term.Restore(fd, oldState)

	keys := readKeys(ctx, os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return
		case key, ok := <-keys:
			if !ok {
				return
			}
			if !handleKey(key, hub, appLog) {
				stop()
				return
			}
		}
	}
}
