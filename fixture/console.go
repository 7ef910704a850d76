package fixture

import (
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/networkteam/goldsuite/collector"
)

// DefaultConsoleCapacity is the number of console messages kept per page.
const DefaultConsoleCapacity = 50

// ConsoleLog keeps the most recent console messages and uncaught errors of a page.
type ConsoleLog struct {
	entries *collector.RingBuffer[string]
}

// WatchConsole starts recording the console of page.
func WatchConsole(page playwright.Page, capacity int) *ConsoleLog {
	if capacity <= 0 {
		capacity = DefaultConsoleCapacity
	}
	l := &ConsoleLog{entries: collector.NewRingBuffer[string](capacity)}

	page.OnConsole(func(msg playwright.ConsoleMessage) {
		l.entries.Add(fmt.Sprintf("[%s] %s", msg.Type(), msg.Text()))
	})
	page.OnPageError(func(err error) {
		l.entries.Add("[pageerror] " + err.Error())
	})

	return l
}

// Lines returns the recorded messages, oldest first.
func (l *ConsoleLog) Lines() []string {
	return l.entries.All()
}

// Dropped returns how many older messages were discarded.
func (l *ConsoleLog) Dropped() int {
	return l.entries.Dropped()
}
