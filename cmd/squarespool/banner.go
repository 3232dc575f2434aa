package main

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ANSI escape codes
const (
	clearLine = "\033[2K"
	moveUp    = "\033[%dA"
	reset     = "\033[0m"
	yellow    = "\033[33m"
	red       = "\033[31m"
	green     = "\033[32m"
	cyan      = "\033[36m"
	bold      = "\033[1m"
)

const bannerWidth = 62

var logo = []string{
	"   ____                                                      ",
	"  / ___|  __ _ _   _  __ _ _ __ ___  ___                     ",
	"  \\___ \\ / _` | | | |/ _` | '__/ _ \\/ __|                    ",
	"   ___) | (_| | |_| | (_| | | |  __/\\__ \\   Super Bowl        ",
	"  |____/ \\__, |\\__,_|\\__,_|_|  \\___||___/   Squares Pool      ",
	"            |_|                                              ",
}

// showBanner draws the logo and, unless skipKick is set, a field goal
// attempt sailing through the uprights
func showBanner(w io.Writer, skipKick bool, frameDelay time.Duration) {
	border := strings.Repeat("═", bannerWidth)

	fmt.Fprintf(w, "\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range logo {
		fmt.Fprintf(w, "  %s║%s%s%s║%s\n", cyan, yellow, pad(line, bannerWidth), cyan, reset)
	}
	fmt.Fprintf(w, "  %s╚%s╝%s\n", cyan, border, reset)

	if skipKick {
		fmt.Fprint(w, "\n")
		return
	}

	// Reopen the box below the logo for the field
	fmt.Fprintf(w, moveUp, 1)
	fmt.Fprintf(w, "%s  %s╠%s╣%s\n", clearLine, cyan, border, reset)

	const (
		rows    = 3
		goalCol = bannerWidth - 4
		frames  = 16
	)
	for frame := 0; frame < frames; frame++ {
		col := frame * goalCol / (frames - 1)
		// the ball rises to the middle row then drops toward the posts
		row := rows - 1
		if frame > 2 && frame < frames-3 {
			row = 0
		} else if frame > 0 && frame < frames-1 {
			row = 1
		}

		for r := 0; r < rows; r++ {
			field := []rune(strings.Repeat(" ", bannerWidth))
			for yard := 6; yard < goalCol; yard += 10 {
				field[yard] = '┊'
			}
			field[goalCol] = 'Y'
			if r == row {
				field[col] = '●'
			}
			line := string(field)
			if r == row {
				line = strings.Replace(line, "●", red+"●"+reset, 1)
			}
			fmt.Fprintf(w, "%s  %s║%s%s║%s\n", clearLine, cyan, line, cyan, reset)
		}
		fmt.Fprintf(w, "%s  %s╚%s╝%s\n", clearLine, cyan, border, reset)

		if frame < frames-1 {
			fmt.Fprintf(w, moveUp, rows+1)
		}
		time.Sleep(frameDelay)
	}

	fmt.Fprintf(w, moveUp, rows+1)
	result := pad(fmt.Sprintf("  %sIT'S GOOD!%s", green+bold, reset), bannerWidth+len(green+bold+reset))
	for r := 0; r < rows; r++ {
		line := strings.Repeat(" ", bannerWidth)
		if r == 1 {
			line = result
		}
		fmt.Fprintf(w, "%s  %s║%s%s║%s\n", clearLine, cyan, line, cyan, reset)
	}
	fmt.Fprintf(w, "%s  %s╚%s╝%s\n\n", clearLine, cyan, border, reset)
}

// pad right-fills s with spaces to width runes
func pad(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
