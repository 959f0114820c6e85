// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package status

import (
	"fmt"
	"time"
)

// Status represents the workload status of the unit as reported to the
// orchestrator with status-set.
type Status string

// String returns a string representation of the Status.
func (s Status) String() string {
	return string(s)
}

const (
	// Unknown is set when:
	// The charm has not reported any status yet.
	Unknown Status = "unknown"

	// Maintenance is set when:
	// The unit is not yet providing services, but is actively doing stuff
	// in preparation for providing those services.
	// This is a "spinning" state, not an error state.
	Maintenance Status = "maintenance"

	// Waiting is set when:
	// The unit is unable to progress to an active state because something
	// outside of it is not ready yet.
	Waiting Status = "waiting"

	// Blocked is set when:
	// The unit needs manual intervention to get back to the Running state.
	Blocked Status = "blocked"

	// Active is set when:
	// The unit believes it is correctly offering all the services it has
	// been asked to offer.
	Active Status = "active"
)

const (
	MessageUnitReady         = "Unit is ready"
	MessageInstallingSDC     = "Installing SDC kernel module"
	MessageRemovingSDC       = "Removing SDC package"
	MessageResourceMissing   = "sdc-deb-package resource is missing"
	MessageInstallFailed     = "SDC Debian package failed to install"
	MessageNotInstalled      = "SDC Debian package is not installed"
	MessageMissingMDMAddress = "powerflex-sdc-mdm-ips must be set"
)

// StatusInfo holds a Status and associated information.
type StatusInfo struct {
	Status  Status
	Message string
	Since   *time.Time
}

// String returns the status and message as shown by juju status.
func (s StatusInfo) String() string {
	if s.Message == "" {
		return s.Status.String()
	}
	return fmt.Sprintf("%s: %s", s.Status, s.Message)
}

// IsActive returns whether the status is active.
func (s StatusInfo) IsActive() bool {
	return s.Status == Active
}

// StatusSetter represents a type whose status can be set.
type StatusSetter interface {
	SetStatus(StatusInfo) error
}

// NewActive returns an active status with the given message.
func NewActive(message string) StatusInfo {
	return StatusInfo{Status: Active, Message: message}
}

// NewBlocked returns a blocked status with the given message.
func NewBlocked(message string) StatusInfo {
	return StatusInfo{Status: Blocked, Message: message}
}

// NewMaintenance returns a maintenance status with the given message.
func NewMaintenance(message string) StatusInfo {
	return StatusInfo{Status: Maintenance, Message: message}
}

// ValidWorkloadStatus returns true if status has a valid value (that is to say,
// a value that it's OK to set) for units.
func ValidWorkloadStatus(status Status) bool {
	switch status {
	case
		Blocked,
		Maintenance,
		Waiting,
		Active:
		return true
	default:
		return false
	}
}

// Aggregate folds the results of a sequence of status checks into the
// single status reported for the unit. The first check which is not active
// wins; when every check is active the unit is ready.
func Aggregate(checks ...StatusInfo) StatusInfo {
	for _, check := range checks {
		if !check.IsActive() {
			return check
		}
	}
	return NewActive(MessageUnitReady)
}
