//go:build !linux

package main

// isTerminal is a conservative stub on platforms without a termios probe.
func isTerminal(fd uintptr) bool { return true }
