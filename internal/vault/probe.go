package vault

import (
	"os"
	"os/exec"
	"strings"
)

// Opener describes the command Open will run.
type Opener struct {
	Command   string `json:"command,omitempty"`
	Origin    string `json:"origin"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// ProbeOpener reports which command Open would use and whether it is on
// PATH.
func (v *Vault) ProbeOpener() Opener {
	return ProbeOpenerWithLookPath(v.cfg.OpenCommand, os.Getenv("EDITOR"), exec.LookPath)
}

func ProbeOpenerWithLookPath(openCommand, editor string, lookPath func(file string) (string, error)) Opener {
	candidates := []struct {
		origin  string
		command string
	}{
		{"open_command", openCommand},
		{"EDITOR", editor},
	}

	for _, candidate := range candidates {
		fields := strings.Fields(candidate.command)
		if len(fields) == 0 {
			continue
		}
		opener := Opener{Command: candidate.command, Origin: candidate.origin}
		if _, err := lookPath(fields[0]); err != nil {
			opener.Reason = "command_not_found"
			return opener
		}
		opener.Available = true
		return opener
	}
	return Opener{Origin: "print", Available: true, Reason: "no_command"}
}
