// Package item defines the unit of work that flows through the decision,
// aging, and download stages, along with the match results and terminal
// outcome taxonomy attached to it.
package item
