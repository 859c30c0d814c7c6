package cmd

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

const barWidth = 30

var isTTY = sync.OnceValue(func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
})

// printProgress renders an inline progress bar on TTY, no-op otherwise.
func printProgress(name string, current, total int64) {
	if !isTTY() || total <= 0 {
		return
	}
	pct := float64(current) / float64(total)
	filled := int(pct * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	fmt.Printf("\r[%s] %s %d/%d (%.0f%%)", name, bar, current, total, pct*100)
}

// printProgressDone prints the final progress state. On TTY it shows a full
// bar; on non-TTY it prints a single summary line.
func printProgressDone(name string, total int64, what string) {
	if isTTY() {
		bar := strings.Repeat("█", barWidth)
		fmt.Printf("\r[%s] %s %d/%d (100%%)\n", name, bar, total, total)
	} else {
		fmt.Printf("[%s] %d %s\n", name, total, what)
	}
}
