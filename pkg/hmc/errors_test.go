package hmc

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExtractCode(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"HSCL8012 The partition named vios1 was not found.", "HSCL8012"},
		{"lssyscfg: HSCL350B The user does not have the appropriate authority.", "HSCL350B"},
		{"connection reset by peer", ""},
	}
	for _, tt := range tests {
		if got := ExtractCode(tt.output); got != tt.want {
			t.Errorf("ExtractCode(%q) = %q, want %q", tt.output, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	notFound := &ConsoleError{Op: "lssyscfg", Code: CodePartitionNotFound, Output: "HSCL8012 not found"}
	noAuth := &ConsoleError{Op: "updvios", Code: CodeInsufficientAuthority, Output: "HSCL350B no authority"}
	other := &ConsoleError{Op: "chsyscfg", Code: "HSCL03FE", Output: "HSCL03FE bad value"}

	tests := []struct {
		name   string
		action Action
		err    error
		want   Disposition
	}{
		{"create swallows lookup miss", ActionCreateVios, notFound, DispositionAlreadyApplied},
		{"update authority is soft noop", ActionUpdateVios, noAuth, DispositionSoftNoop},
		{"upgrade authority is soft noop", ActionUpgradeVios, noAuth, DispositionSoftNoop},
		{"lookup miss elsewhere is fatal", ActionAcceptLicense, notFound, DispositionFatal},
		{"authority elsewhere is fatal", ActionPowerOn, noAuth, DispositionFatal},
		{"unknown code is fatal", ActionCreateVios, other, DispositionFatal},
		{"plain error is fatal", ActionUpdateVios, errors.New("boom"), DispositionFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.action, tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithActionAttachesName(t *testing.T) {
	inner := &ConsoleError{Op: "chsysstate", Code: "HSCL0237", Output: "HSCL0237 invalid state"}
	err := WithAction(ActionPowerOff, inner)
	if !strings.HasPrefix(err.Error(), "poweroff: ") {
		t.Errorf("error = %q, want poweroff prefix", err)
	}
	if !HasCode(err, "HSCL0237") {
		t.Error("wrapped error lost its console code")
	}
}

func TestConvergenceTimeoutError(t *testing.T) {
	err := &ConvergenceTimeoutError{Target: "vios1", State: "Not Activated", RefCode: "E1234", Deadline: 60 * time.Minute}
	msg := err.Error()
	for _, part := range []string{"vios1", "60 mins", "Not Activated", "E1234"} {
		if !strings.Contains(msg, part) {
			t.Errorf("message %q missing %q", msg, part)
		}
	}
}
