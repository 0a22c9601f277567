// File: internal/winauth/winauth.go

// Package winauth is the OS-facing leaf of the agent: it enumerates windows,
// activates the foreground application, injects synthetic keyboard and mouse
// input, and reads/writes the clipboard.
//
// Every operation is best-effort and returns booleans or empty results, never
// an error value the caller must branch on: "false" means "did not happen",
// never partial success.
package winauth

import (
	"strings"
	"time"
)

// WindowInfo describes one top-level window.
type WindowInfo struct {
	Handle  uintptr
	Title   string
	Class   string
	PID     uint32
	Process string
}

// Rect is a window rectangle in absolute screen coordinates.
type Rect struct {
	Left, Top, Right, Bottom int
}

func (r Rect) Width() int  { return max(0, r.Right-r.Left) }
func (r Rect) Height() int { return max(0, r.Bottom-r.Top) }

// Authority is the contract the rest of the agent depends on. Tests swap in a
// fake; production uses the Win32 implementation.
type Authority interface {
	// ListWindows enumerates visible top-level windows with a non-empty title.
	ListWindows() []WindowInfo

	// Foreground reports the window currently receiving input focus.
	Foreground() (WindowInfo, bool)

	// FindWindow returns the first visible window matching the target.
	FindWindow(target FocusTarget) (WindowInfo, bool)

	// Activate restores, raises, and focuses the window. It returns true only
	// if a post-settle re-query confirms the handle is foreground.
	Activate(handle uintptr) bool

	// WindowRect reports the window rectangle in screen coordinates.
	WindowRect(handle uintptr) (Rect, bool)

	// Close asks the window to close. Posted, not waited on.
	Close(handle uintptr) bool

	// InjectKeys sends one key press or a hotkey chord (all but the last key
	// are treated as modifiers) to the foreground window.
	InjectKeys(keys []string) bool

	// InjectText types text into the foreground window. Full Unicode, with an
	// ASCII scan-code fallback if Unicode injection is rejected.
	InjectText(text string) bool

	// MoveMouse glides the cursor to absolute screen coordinates.
	MoveMouse(x, y int) bool

	// Click presses and releases a mouse button at absolute coordinates.
	Click(x, y int, button string) bool

	// ReadClipboard returns the current clipboard text, retrying briefly
	// against transient locks. Empty string when unavailable.
	ReadClipboard(timeout time.Duration) string

	// WriteClipboard replaces the clipboard text, retrying briefly against
	// transient locks.
	WriteClipboard(text string, timeout time.Duration) bool
}

// FocusTarget identifies the application the agent intends to drive.
type FocusTarget struct {
	TitleContains string
	ProcessName   string
	ClassContains string
}

// Matches corroborates a window's identity. Title or process name must
// corroborate; a class name match narrows but never suffices on its own,
// because window classes are reused across unrelated applications.
func (t FocusTarget) Matches(w WindowInfo) bool {
	titleOK := t.TitleContains != "" &&
		strings.Contains(strings.ToLower(w.Title), strings.ToLower(t.TitleContains))
	procOK := t.ProcessName != "" &&
		strings.Contains(strings.ToLower(w.Process), strings.ToLower(t.ProcessName))
	if !titleOK && !procOK {
		return false
	}
	if t.ClassContains != "" &&
		!strings.Contains(strings.ToLower(w.Class), strings.ToLower(t.ClassContains)) {
		return false
	}
	return true
}

// Empty reports whether the target carries no corroborating fields at all.
func (t FocusTarget) Empty() bool {
	return t.TitleContains == "" && t.ProcessName == ""
}
