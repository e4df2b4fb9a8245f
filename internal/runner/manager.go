package runner

import (
	"strings"
)

// Defaults for the version manager invocation.
const (
	DefaultShell    = "bash"
	DefaultTemplate = `. "${NVM_DIR:-$HOME/.nvm}/nvm.sh" && nvm exec --silent {version} {command}`
)

// Manager builds the shell invocation that selects a Node.js version and
// runs a command under it. Template may use the {version} and {command}
// placeholders.
type Manager struct {
	Shell    string
	Template string
}

// Command returns the argv running command under version.
func (m Manager) Command(version, command string) []string {
	shell := m.Shell
	if shell == "" {
		shell = DefaultShell
	}
	tmpl := m.Template
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	script := strings.NewReplacer(
		"{version}", ShellQuote(version),
		"{command}", command,
	).Replace(tmpl)
	return []string{shell, "-c", script}
}

// ShellQuote leaves plain words alone and single-quotes anything else.
func ShellQuote(s string) string {
	safe := s != ""
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '.' || r == '-' || r == '_' || r == '/') {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
