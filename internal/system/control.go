// Package system issues the host-level operations the command desk can
// trigger: conduit service control, the update script, and machine reboot.
package system

import (
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// ConduitUnit is the systemd unit running the conduit inproxy.
const ConduitUnit = "conduit.service"

// Controller is the injected collaborator for OS side effects. All
// mutating operations are fire-and-forget: the bot never waits on or
// inspects their outcome, so a failed restart simply shows up as STOPPED
// on the next dashboard refresh.
type Controller interface {
	RestartConduit()
	StopConduit()
	Reboot()
	RunUpdate()
	// UnitStatus returns "active", "inactive", "failed", or "unknown".
	UnitStatus(unit string) string
}

// SystemdController drives systemctl on the local machine.
type SystemdController struct {
	logger       *zap.Logger
	updateScript string
}

func NewSystemdController(updateScript string, logger *zap.Logger) *SystemdController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemdController{logger: logger, updateScript: updateScript}
}

func (c *SystemdController) RestartConduit() {
	c.fireAndForget("systemctl", "restart", ConduitUnit)
}

func (c *SystemdController) StopConduit() {
	c.fireAndForget("systemctl", "stop", ConduitUnit)
}

func (c *SystemdController) Reboot() {
	c.fireAndForget("reboot")
}

// RunUpdate launches the update script. The script replaces the bot's own
// service, so this process may die before the script finishes.
func (c *SystemdController) RunUpdate() {
	c.fireAndForget("bash", c.updateScript)
}

func (c *SystemdController) UnitStatus(unit string) string {
	// systemctl is-active exits non-zero for inactive units; the output
	// is still the status word, so the error is deliberately ignored.
	out, _ := exec.Command("systemctl", "is-active", unit).Output()
	s := strings.ToLower(strings.TrimSpace(string(out)))
	switch s {
	case "active", "inactive", "failed":
		return s
	}
	return "unknown"
}

func (c *SystemdController) fireAndForget(name string, args ...string) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		c.logger.Warn("command start failed",
			zap.String("command", name),
			zap.Strings("args", args),
			zap.Error(err),
		)
		return
	}
	// Reap the child; the exit status is intentionally not surfaced.
	go func() { _ = cmd.Wait() }()
}
