// Package viz renders fibril runs for the terminal: lipgloss-styled
// summaries, ASCII line plots of per-bead quantities and sparklines.
//
// Output is plain text so it can be piped; styles degrade to unstyled text
// when the terminal has no color support.
package viz
