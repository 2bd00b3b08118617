package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// commandSender runs a platform notification command
type commandSender struct {
	name string
	args func(title, message string) []string
}

func (c commandSender) Send(title, message string) error {
	return exec.Command(c.name, c.args(title, message)...).Run()
}

func escapeAppleScript(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// PlatformSender returns the notification sender for goos, or nil
func PlatformSender(goos string) NotificationSender {
	switch goos {
	case "linux":
		return commandSender{name: "notify-send", args: func(title, message string) []string {
			return []string{title, message}
		}}
	case "darwin":
		return commandSender{name: "osascript", args: func(title, message string) []string {
			return []string{"-e", fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(message), escapeAppleScript(title))}
		}}
	default:
		return nil
	}
}

// Notifier announces the end of a crawl on the console and, when enabled,
// as a desktop notification
type Notifier struct {
	sender  NotificationSender
	enabled bool
}

// NewNotifier creates a notifier for the current platform
func NewNotifier(enabled bool) *Notifier {
	return &Notifier{sender: PlatformSender(runtime.GOOS), enabled: enabled}
}

// NewNotifierWithSender creates a notifier with a custom sender
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender, enabled: sender != nil}
}

// SendSuccess prints and sends a success notification
func (n *Notifier) SendSuccess(title, message string) error {
	write(false, fmt.Sprintf("\n%s: %s\n", Green(title), message))
	return n.send(title, message)
}

// SendError prints and sends an error notification
func (n *Notifier) SendError(title, message string) error {
	write(true, fmt.Sprintf("\n%s: %s\n", Red(title), message))
	return n.send(title, message)
}

func (n *Notifier) send(title, message string) error {
	if !n.enabled || n.sender == nil {
		return nil
	}
	return n.sender.Send(title, message)
}
