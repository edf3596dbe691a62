package browser

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// x11Socket is where an X server listening on display ":N" puts its socket.
func x11Socket(display string) (string, error) {
	n := strings.TrimPrefix(display, ":")
	if i := strings.IndexByte(n, '.'); i >= 0 {
		n = n[:i]
	}
	if n == "" || strings.Trim(n, "0123456789") != "" {
		return "", fmt.Errorf("browser: bad X display %q", display)
	}
	return "/tmp/.X11-unix/X" + n, nil
}

// startXvfb makes sure an X server serves the configured display for
// headful mode. A server already listening there (the desktop, or a shared
// Xvfb) is reused and left running on Close.
func (m *Manager) startXvfb() error {
	if m.xvfb != nil {
		return nil
	}
	sock, err := x11Socket(m.cfg.XvfbDisplay)
	if err != nil {
		return err
	}
	if _, err := os.Stat(sock); err == nil {
		m.cfg.Logger.Info("browser: reusing X display", "display", m.cfg.XvfbDisplay)
		return nil
	}

	cmd := exec.Command("Xvfb", m.cfg.XvfbDisplay, "-screen", "0", "1600x1000x24", "-nolisten", "tcp")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("browser: start xvfb: %w", err)
	}
	m.xvfb = cmd

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(sock); err == nil {
			break
		}
		if time.Now().After(deadline) {
			m.stopXvfb()
			return fmt.Errorf("browser: xvfb on %s did not come up", m.cfg.XvfbDisplay)
		}
		time.Sleep(50 * time.Millisecond)
	}
	m.cfg.Logger.Info("browser: xvfb started", "display", m.cfg.XvfbDisplay, "pid", cmd.Process.Pid)
	return nil
}

func (m *Manager) stopXvfb() {
	if m.xvfb == nil {
		return
	}
	if p := m.xvfb.Process; p != nil {
		p.Kill()
		m.xvfb.Wait()
	}
	m.xvfb = nil
	m.cfg.Logger.Info("browser: xvfb stopped", "display", m.cfg.XvfbDisplay)
}
