package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"sunocrawl/pkg/config"
)

// bell is the terminal BEL control character
const bell = "\a"

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name=sunocrawl", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	escape := func(s string) string { return strings.ReplaceAll(s, "'", "''") }
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
		$text = $template.GetElementsByTagName('text')
		$text.Item(0).AppendChild($template.CreateTextNode('%s')) | Out-Null
		$text.Item(1).AppendChild($template.CreateTextNode('%s')) | Out-Null
		$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier('sunocrawl').Show($toast)
	`, escape(title), escape(message))

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// platformSender picks the desktop notification mechanism for this OS
func platformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	default:
		return nil
	}
}

// Notifier signals the operator through the console, the terminal bell and
// optionally a desktop notification.
type Notifier struct {
	sender  NotificationSender
	enabled bool
	bell    bool
}

// NewNotifier creates a Notifier from the notification preferences
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	n := &Notifier{enabled: cfg.Enabled, bell: cfg.Bell}
	if cfg.Enabled && cfg.Desktop {
		n.sender = platformSender()
	}
	return n
}

// NewNotifierWithSender creates an enabled Notifier with an explicit desktop sender
func NewNotifierWithSender(sender NotificationSender, ringBell bool) *Notifier {
	return &Notifier{sender: sender, enabled: true, bell: ringBell}
}

// Bell rings the terminal bell
func (n *Notifier) Bell() {
	if n.enabled && n.bell {
		fmt.Fprint(Output(), bell)
	}
}

// SendNotification sends a desktop notification and prints to console
func (n *Notifier) SendNotification(title, message string) {
	fmt.Fprintf(Output(), "\n%s: %s\n", Cyan(title), Yellow(message))
	n.desktop(title, message)
}

// SendError sends an error notification
func (n *Notifier) SendError(title, message string) {
	fmt.Fprintf(Output(), "\n%s: %s\n", Red(title), Red(message))
	n.desktop(title, message)
}

// SendSuccess sends a success notification
func (n *Notifier) SendSuccess(title, message string) {
	fmt.Fprintf(Output(), "\n%s: %s\n", Green(title), Green(message))
	n.desktop(title, message)
}

// Alert demands operator attention: bell, console line and desktop notification
func (n *Notifier) Alert(title, message string) {
	n.Bell()
	n.SendNotification(title, message)
}

func (n *Notifier) desktop(title, message string) {
	if !n.enabled || n.sender == nil {
		return
	}
	// Desktop notifications are best effort
	_ = n.sender.Send(title, message)
}
