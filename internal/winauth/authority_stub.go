//go:build !windows

// File: internal/winauth/authority_stub.go
package winauth

import (
	"time"

	"go.uber.org/zap"
)

// Unsupported is the non-Windows build of the authority. Every call reports
// "did not happen" so the gate and executor fail closed instead of crashing.
type Unsupported struct {
	logger *zap.Logger
	warned bool
}

// NewAuthority returns the stub on platforms without a desktop backend.
func NewAuthority(logger *zap.Logger) *Unsupported {
	return &Unsupported{logger: logger.Named("winauth")}
}

func (u *Unsupported) warn() {
	if !u.warned {
		u.warned = true
		u.logger.Warn("no desktop input backend on this platform; all authority operations report false")
	}
}

func (u *Unsupported) ListWindows() []WindowInfo      { u.warn(); return nil }
func (u *Unsupported) Foreground() (WindowInfo, bool) { u.warn(); return WindowInfo{}, false }
func (u *Unsupported) FindWindow(FocusTarget) (WindowInfo, bool) {
	u.warn()
	return WindowInfo{}, false
}
func (u *Unsupported) Activate(uintptr) bool                     { u.warn(); return false }
func (u *Unsupported) WindowRect(uintptr) (Rect, bool)           { u.warn(); return Rect{}, false }
func (u *Unsupported) Close(uintptr) bool                        { u.warn(); return false }
func (u *Unsupported) InjectKeys([]string) bool                  { u.warn(); return false }
func (u *Unsupported) InjectText(string) bool                    { u.warn(); return false }
func (u *Unsupported) MoveMouse(int, int) bool                   { u.warn(); return false }
func (u *Unsupported) Click(int, int, string) bool               { u.warn(); return false }
func (u *Unsupported) ReadClipboard(time.Duration) string        { u.warn(); return "" }
func (u *Unsupported) WriteClipboard(string, time.Duration) bool { u.warn(); return false }
