package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

type DesktopDeliverer struct {
	run func(ctx context.Context, name string, args ...string) error
}

func NewDesktopDeliverer() *DesktopDeliverer {
	return &DesktopDeliverer{run: func(ctx context.Context, name string, args ...string) error {
		return exec.CommandContext(ctx, name, args...).Run()
	}}
}

func (d *DesktopDeliverer) Name() string { return "desktop" }

func (d *DesktopDeliverer) Deliver(ctx context.Context, p Payload) error {
	name, args := desktopCommand(runtime.GOOS, p)
	if name == "" {
		return nil
	}
	return d.run(ctx, name, args...)
}

func desktopCommand(goos string, p Payload) (string, []string) {
	switch goos {
	case "linux":
		return "notify-send", []string{"--app-name=salahd", p.Title, p.Body}
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(p.Body), escapeAppleScript(p.Title))
		return "osascript", []string{"-e", script}
	default:
		return "", nil
	}
}

func escapeAppleScript(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `"`, `\"`)
}
