//go:build windows

// File: internal/winauth/authority_windows.go
package winauth

import (
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
	"unicode"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procGetClassNameW            = user32.NewProc("GetClassNameW")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetWindowThreadProcessID = user32.NewProc("GetWindowThreadProcessId")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow      = user32.NewProc("SetForegroundWindow")
	procBringWindowToTop         = user32.NewProc("BringWindowToTop")
	procShowWindowAsync          = user32.NewProc("ShowWindowAsync")
	procAttachThreadInput        = user32.NewProc("AttachThreadInput")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procPostMessageW             = user32.NewProc("PostMessageW")
	procSendInput                = user32.NewProc("SendInput")
	procVkKeyScanW               = user32.NewProc("VkKeyScanW")
	procGetSystemMetrics         = user32.NewProc("GetSystemMetrics")
	procGetCursorPos             = user32.NewProc("GetCursorPos")
	procOpenClipboard            = user32.NewProc("OpenClipboard")
	procCloseClipboard           = user32.NewProc("CloseClipboard")
	procEmptyClipboard           = user32.NewProc("EmptyClipboard")
	procGetClipboardData         = user32.NewProc("GetClipboardData")
	procSetClipboardData         = user32.NewProc("SetClipboardData")
	procIsClipboardFormatAvail   = user32.NewProc("IsClipboardFormatAvailable")

	procGlobalAlloc  = kernel32.NewProc("GlobalAlloc")
	procGlobalLock   = kernel32.NewProc("GlobalLock")
	procGlobalUnlock = kernel32.NewProc("GlobalUnlock")
	procGlobalFree   = kernel32.NewProc("GlobalFree")
)

const (
	swRestore  = 9
	swMaximize = 3
	wmClose    = 0x0010

	cfUnicodeText = 13
	gmemMoveable  = 0x0002

	inputKeyboard       = 1
	inputMouse          = 0
	keyeventfKeyUp      = 0x0002
	keyeventfUnicode    = 0x0004
	mouseeventfMove     = 0x0001
	mouseeventfAbsolute = 0x8000
	mouseeventfLeftDn   = 0x0002
	mouseeventfLeftUp   = 0x0004
	mouseeventfRightDn  = 0x0008
	mouseeventfRightUp  = 0x0010
	mouseeventfMidDn    = 0x0020
	mouseeventfMidUp    = 0x0040

	smCxScreen = 0
	smCyScreen = 1
)

// vkMap covers the navigation and modifier keys the executor walks with.
// Single characters fall through to VkKeyScanW.
var vkMap = map[string]uint16{
	"tab": 0x09, "enter": 0x0D, "return": 0x0D,
	"esc": 0x1B, "escape": 0x1B,
	"shift": 0x10, "ctrl": 0x11, "control": 0x11, "alt": 0x12,
	"space":  0x20,
	"pageup": 0x21, "pagedown": 0x22,
	"end": 0x23, "home": 0x24,
	"left": 0x25, "up": 0x26, "right": 0x27, "down": 0x28,
	"insert": 0x2D, "delete": 0x2E,
	"win": 0x5B, "lwin": 0x5B,
	"f5": 0x74, "f6": 0x75,
}

// keyboardInput mirrors KEYBDINPUT.
type keyboardInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

// mouseInput mirrors MOUSEINPUT.
type mouseInput struct {
	dx          int32
	dy          int32
	mouseData   uint32
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

// keyInput / mouseEvent are INPUT with the union collapsed to the variant in
// use, padded to the 40-byte x64 layout.
type keyInput struct {
	inputType uint32
	_         uint32
	ki        keyboardInput
	_         [8]byte
}

type mouseEvent struct {
	inputType uint32
	_         uint32
	mi        mouseInput
}

type point struct{ x, y int32 }
type winRect struct{ left, top, right, bottom int32 }

// Win32Authority drives the desktop through user32/kernel32 calls.
type Win32Authority struct {
	logger *zap.Logger

	mu sync.Mutex
	// Re-maximizing on every activation causes visible flicker, so it is
	// requested at most once per handle per few seconds.
	maximizedAt map[uintptr]time.Time

	// Settle pause between raising a window and the confirming re-query.
	activateSettle time.Duration
	// Cursor glide step pacing.
	moveSteps int
	moveStep  time.Duration
}

// NewAuthority returns the production Win32 implementation.
func NewAuthority(logger *zap.Logger) *Win32Authority {
	return &Win32Authority{
		logger:         logger.Named("winauth"),
		maximizedAt:    make(map[uintptr]time.Time),
		activateSettle: 150 * time.Millisecond,
		moveSteps:      24,
		moveStep:       8 * time.Millisecond,
	}
}

func windowText(hwnd uintptr) string {
	length, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if length == 0 {
		return ""
	}
	buf := make([]uint16, length+1)
	procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), length+1)
	return windows.UTF16ToString(buf)
}

func className(hwnd uintptr) string {
	buf := make([]uint16, 256)
	procGetClassNameW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), 256)
	return windows.UTF16ToString(buf)
}

func windowPID(hwnd uintptr) (tid uintptr, pid uint32) {
	tid, _, _ = procGetWindowThreadProcessID.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	return tid, pid
}

// processName resolves the image base name for a PID, best effort.
func processName(pid uint32) string {
	if pid == 0 {
		return ""
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)
	buf := make([]uint16, 4096)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return ""
	}
	return filepath.Base(windows.UTF16ToString(buf[:size]))
}

func (a *Win32Authority) info(hwnd uintptr) WindowInfo {
	_, pid := windowPID(hwnd)
	return WindowInfo{
		Handle:  hwnd,
		Title:   windowText(hwnd),
		Class:   className(hwnd),
		PID:     pid,
		Process: processName(pid),
	}
}

func enumWindows(visit func(hwnd uintptr) bool) {
	cb := syscall.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		if visit(hwnd) {
			return 1 // continue
		}
		return 0
	})
	procEnumWindows.Call(cb, 0)
}

func (a *Win32Authority) ListWindows() []WindowInfo {
	var out []WindowInfo
	enumWindows(func(hwnd uintptr) bool {
		visible, _, _ := procIsWindowVisible.Call(hwnd)
		if visible == 0 {
			return true
		}
		title := windowText(hwnd)
		if title == "" {
			return true
		}
		out = append(out, a.info(hwnd))
		return true
	})
	return out
}

func (a *Win32Authority) Foreground() (WindowInfo, bool) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return WindowInfo{}, false
	}
	return a.info(hwnd), true
}

func (a *Win32Authority) FindWindow(target FocusTarget) (WindowInfo, bool) {
	var found WindowInfo
	ok := false
	enumWindows(func(hwnd uintptr) bool {
		visible, _, _ := procIsWindowVisible.Call(hwnd)
		if visible == 0 {
			return true
		}
		w := a.info(hwnd)
		if target.Matches(w) {
			found, ok = w, true
			return false
		}
		return true
	})
	return found, ok
}

// Activate restores, raises, and focuses the window. The AttachThreadInput
// pairing lets SetForegroundWindow succeed even when the OS would otherwise
// refuse a background focus steal. Success is only claimed after a re-query
// confirms the handle actually went foreground.
func (a *Win32Authority) Activate(handle uintptr) bool {
	if handle == 0 {
		return false
	}
	procShowWindowAsync.Call(handle, swRestore)

	a.mu.Lock()
	last, seen := a.maximizedAt[handle]
	if !seen || time.Since(last) > 5*time.Second {
		procShowWindowAsync.Call(handle, swMaximize)
		a.maximizedAt[handle] = time.Now()
	}
	a.mu.Unlock()

	fg, _, _ := procGetForegroundWindow.Call()
	if fg != handle {
		tid1, _ := windowPID(fg)
		tid2, _ := windowPID(handle)
		attached := false
		if tid1 != 0 && tid2 != 0 && tid1 != tid2 {
			r, _, _ := procAttachThreadInput.Call(tid1, tid2, 1)
			attached = r != 0
		}
		procSetForegroundWindow.Call(handle)
		procBringWindowToTop.Call(handle)
		if attached {
			procAttachThreadInput.Call(tid1, tid2, 0)
		}
	}

	time.Sleep(a.activateSettle)
	fg, _, _ = procGetForegroundWindow.Call()
	if fg != handle {
		a.logger.Debug("activation not confirmed by re-query",
			zap.Uintptr("handle", handle), zap.Uintptr("foreground", fg))
		return false
	}
	return true
}

func (a *Win32Authority) WindowRect(handle uintptr) (Rect, bool) {
	var r winRect
	ok, _, _ := procGetWindowRect.Call(handle, uintptr(unsafe.Pointer(&r)))
	if ok == 0 {
		return Rect{}, false
	}
	return Rect{Left: int(r.left), Top: int(r.top), Right: int(r.right), Bottom: int(r.bottom)}, true
}

func (a *Win32Authority) Close(handle uintptr) bool {
	// PostMessage rather than SendMessage: a hung target must not hang us.
	ok, _, _ := procPostMessageW.Call(handle, wmClose, 0, 0)
	return ok != 0
}

func vkFor(key string) uint16 {
	k := strings.ToLower(strings.TrimSpace(key))
	if vk, ok := vkMap[k]; ok {
		return vk
	}
	if len([]rune(k)) == 1 {
		r := []rune(k)[0]
		vk, _, _ := procVkKeyScanW.Call(uintptr(r))
		return uint16(vk & 0xFF)
	}
	return 0
}

func sendKeyInputs(seq []keyInput) bool {
	if len(seq) == 0 {
		return false
	}
	n, _, _ := procSendInput.Call(
		uintptr(len(seq)),
		uintptr(unsafe.Pointer(&seq[0])),
		unsafe.Sizeof(seq[0]),
	)
	return int(n) == len(seq)
}

func keyEvent(vk uint16, up bool) keyInput {
	var flags uint32
	if up {
		flags = keyeventfKeyUp
	}
	return keyInput{inputType: inputKeyboard, ki: keyboardInput{wVk: vk, dwFlags: flags}}
}

// InjectKeys sends a press (or a chord: all but the last key held as
// modifiers) to whatever window is foreground, like physical keyboard input.
// Callers gate on foreground identity before invoking this.
func (a *Win32Authority) InjectKeys(keys []string) bool {
	if len(keys) == 0 {
		return false
	}
	vks := make([]uint16, 0, len(keys))
	for _, k := range keys {
		vk := vkFor(k)
		if vk == 0 {
			a.logger.Debug("unmapped key rejected", zap.String("key", k))
			return false
		}
		vks = append(vks, vk)
	}
	mods, main := vks[:len(vks)-1], vks[len(vks)-1]
	seq := make([]keyInput, 0, 2*len(vks))
	for _, vk := range mods {
		seq = append(seq, keyEvent(vk, false))
	}
	seq = append(seq, keyEvent(main, false), keyEvent(main, true))
	for i := len(mods) - 1; i >= 0; i-- {
		seq = append(seq, keyEvent(mods[i], true))
	}
	return sendKeyInputs(seq)
}

// InjectText types text through KEYEVENTF_UNICODE. If delivery is rejected it
// falls back to plain scan-code presses for the ASCII subset.
func (a *Win32Authority) InjectText(text string) bool {
	if text == "" {
		return true
	}
	units := windows.StringToUTF16(text)
	units = units[:len(units)-1] // drop the NUL terminator
	seq := make([]keyInput, 0, 2*len(units))
	for _, u := range units {
		seq = append(seq,
			keyInput{inputType: inputKeyboard, ki: keyboardInput{wScan: u, dwFlags: keyeventfUnicode}},
			keyInput{inputType: inputKeyboard, ki: keyboardInput{wScan: u, dwFlags: keyeventfUnicode | keyeventfKeyUp}},
		)
	}
	if sendKeyInputs(seq) {
		return true
	}

	a.logger.Debug("unicode injection rejected, retrying ASCII path")
	for _, r := range text {
		if r > unicode.MaxASCII {
			return false
		}
		if !a.InjectKeys([]string{string(r)}) {
			return false
		}
	}
	return true
}

func cursorPos() (int, int) {
	var p point
	procGetCursorPos.Call(uintptr(unsafe.Pointer(&p)))
	return int(p.x), int(p.y)
}

func sendMouse(dx, dy int32, flags uint32) bool {
	ev := mouseEvent{inputType: inputMouse, mi: mouseInput{dx: dx, dy: dy, dwFlags: flags}}
	n, _, _ := procSendInput.Call(1, uintptr(unsafe.Pointer(&ev)), unsafe.Sizeof(keyInput{}))
	return n == 1
}

func toAbsolute(x, y int) (int32, int32) {
	w, _, _ := procGetSystemMetrics.Call(smCxScreen)
	h, _, _ := procGetSystemMetrics.Call(smCyScreen)
	if w == 0 || h == 0 {
		return 0, 0
	}
	return int32(x * 65535 / int(w)), int32(y * 65535 / int(h))
}

// MoveMouse glides the cursor along an eased path rather than teleporting it.
// Some targets drop clicks whose cursor appeared out of nowhere.
func (a *Win32Authority) MoveMouse(x, y int) bool {
	sx, sy := cursorPos()
	steps := a.moveSteps
	for i := 1; i <= steps; i++ {
		t := easeInOut(float64(i) / float64(steps))
		px := sx + int(float64(x-sx)*t)
		py := sy + int(float64(y-sy)*t)
		ax, ay := toAbsolute(px, py)
		if !sendMouse(ax, ay, mouseeventfMove|mouseeventfAbsolute) {
			return false
		}
		time.Sleep(a.moveStep)
	}
	return true
}

func easeInOut(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := 2*t - 2
	return 1 + u*u*u/2
}

func (a *Win32Authority) Click(x, y int, button string) bool {
	if !a.MoveMouse(x, y) {
		return false
	}
	var down, up uint32
	switch strings.ToLower(button) {
	case "", "left":
		down, up = mouseeventfLeftDn, mouseeventfLeftUp
	case "right":
		down, up = mouseeventfRightDn, mouseeventfRightUp
	case "middle":
		down, up = mouseeventfMidDn, mouseeventfMidUp
	default:
		return false
	}
	ax, ay := toAbsolute(x, y)
	if !sendMouse(ax, ay, down|mouseeventfAbsolute) {
		return false
	}
	time.Sleep(30 * time.Millisecond)
	return sendMouse(ax, ay, up|mouseeventfAbsolute)
}

// withClipboard retries OpenClipboard against transient locks held by other
// processes, then runs fn while the clipboard is open.
func withClipboard(timeout time.Duration, fn func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		opened, _, _ := procOpenClipboard.Call(0)
		if opened != 0 {
			defer procCloseClipboard.Call()
			return fn()
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(40 * time.Millisecond)
	}
}

func (a *Win32Authority) ReadClipboard(timeout time.Duration) string {
	var text string
	withClipboard(timeout, func() bool {
		avail, _, _ := procIsClipboardFormatAvail.Call(cfUnicodeText)
		if avail == 0 {
			return false
		}
		h, _, _ := procGetClipboardData.Call(cfUnicodeText)
		if h == 0 {
			return false
		}
		locked, _, _ := procGlobalLock.Call(h)
		if locked == 0 {
			return false
		}
		defer procGlobalUnlock.Call(h)
		text = utf16PtrToString((*uint16)(unsafe.Pointer(locked)))
		return true
	})
	return text
}

func (a *Win32Authority) WriteClipboard(text string, timeout time.Duration) bool {
	units := windows.StringToUTF16(text)
	size := uintptr(len(units) * 2)
	return withClipboard(timeout, func() bool {
		emptied, _, _ := procEmptyClipboard.Call()
		if emptied == 0 {
			return false
		}
		hmem, _, _ := procGlobalAlloc.Call(gmemMoveable, size)
		if hmem == 0 {
			return false
		}
		locked, _, _ := procGlobalLock.Call(hmem)
		if locked == 0 {
			procGlobalFree.Call(hmem)
			return false
		}
		dst := unsafe.Slice((*uint16)(unsafe.Pointer(locked)), len(units))
		copy(dst, units)
		procGlobalUnlock.Call(hmem)
		set, _, _ := procSetClipboardData.Call(cfUnicodeText, hmem)
		if set == 0 {
			procGlobalFree.Call(hmem)
			return false
		}
		// Ownership transferred to the system; do not free.
		return true
	})
}

func utf16PtrToString(p *uint16) string {
	if p == nil {
		return ""
	}
	end := unsafe.Pointer(p)
	n := 0
	for *(*uint16)(end) != 0 {
		end = unsafe.Pointer(uintptr(end) + 2)
		n++
	}
	return windows.UTF16ToString(unsafe.Slice(p, n))
}
