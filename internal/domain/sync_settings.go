package domain

import "fmt"

// ToggleState is the value of a single sync toggle.
type ToggleState string

const (
	ToggleEnabled  ToggleState = "enabled"
	ToggleDisabled ToggleState = "disabled"
)

// IsValid checks if the toggle state is one of the known values
func (s ToggleState) IsValid() bool {
	return s == ToggleEnabled || s == ToggleDisabled
}

// ToggleField names one of the four per-feature toggles.
type ToggleField string

const (
	FieldAppStatus       ToggleField = "appStatus"
	FieldOrderSync       ToggleField = "orderSync"
	FieldPullOrderStatus ToggleField = "pullOrderStatus"
	FieldCancelOrderSync ToggleField = "cancelOrderSync"
)

// ToggleFields lists the per-feature toggles in display order.
var ToggleFields = []ToggleField{
	FieldAppStatus,
	FieldOrderSync,
	FieldPullOrderStatus,
	FieldCancelOrderSync,
}

// IsValid checks if the field names a known toggle
func (f ToggleField) IsValid() bool {
	switch f {
	case FieldAppStatus, FieldOrderSync, FieldPullOrderStatus, FieldCancelOrderSync:
		return true
	default:
		return false
	}
}

// SyncSettings is the session-local gate state. Values are copied, never shared.
type SyncSettings struct {
	AppStatus       ToggleState `json:"appStatus"`
	OrderSync       ToggleState `json:"orderSync"`
	PullOrderStatus ToggleState `json:"pullOrderStatus"`
	CancelOrderSync ToggleState `json:"cancelOrderSync"`
	// DisableAll is only ever cleared. No code path sets it; see DESIGN.md.
	DisableAll bool `json:"disableAll"`
}

// NewSyncSettings returns the initial state: every toggle disabled, not locked.
func NewSyncSettings() SyncSettings {
	return SyncSettings{
		AppStatus:       ToggleDisabled,
		OrderSync:       ToggleDisabled,
		PullOrderStatus: ToggleDisabled,
		CancelOrderSync: ToggleDisabled,
	}
}

// Get returns the current value of a toggle.
func (s SyncSettings) Get(field ToggleField) (ToggleState, bool) {
	switch field {
	case FieldAppStatus:
		return s.AppStatus, true
	case FieldOrderSync:
		return s.OrderSync, true
	case FieldPullOrderStatus:
		return s.PullOrderStatus, true
	case FieldCancelOrderSync:
		return s.CancelOrderSync, true
	}
	return "", false
}

// SetToggle returns a copy with field set to value. The receiver is never modified.
func (s SyncSettings) SetToggle(field ToggleField, value ToggleState) (SyncSettings, error) {
	return Reduce(s, SetToggleAction{Field: field, Value: value})
}

// UnlockOnValidation returns a copy with DisableAll cleared.
func (s SyncSettings) UnlockOnValidation() SyncSettings {
	next, _ := Reduce(s, UnlockAction{})
	return next
}

// Action is a transition applied by Reduce.
type Action interface {
	isAction()
}

// SetToggleAction changes one per-feature toggle.
type SetToggleAction struct {
	Field ToggleField
	Value ToggleState
}

// UnlockAction clears DisableAll after a successful channel validation.
type UnlockAction struct{}

func (SetToggleAction) isAction() {}
func (UnlockAction) isAction()    {}

// Reduce is the pure transition function of the gate. On error the input state is
// returned unchanged.
func Reduce(state SyncSettings, action Action) (SyncSettings, error) {
	switch a := action.(type) {
	case SetToggleAction:
		if !a.Field.IsValid() {
			return state, fmt.Errorf("%w: unknown field %q", ErrInvalidToggle, a.Field)
		}
		if state.DisableAll {
			return state, &GateLocked{Field: a.Field}
		}
		if !a.Value.IsValid() {
			return state, fmt.Errorf("%w: unknown value %q for %s", ErrInvalidToggle, a.Value, a.Field)
		}
		next := state
		switch a.Field {
		case FieldAppStatus:
			next.AppStatus = a.Value
		case FieldOrderSync:
			next.OrderSync = a.Value
		case FieldPullOrderStatus:
			next.PullOrderStatus = a.Value
		case FieldCancelOrderSync:
			next.CancelOrderSync = a.Value
		}
		return next, nil
	case UnlockAction:
		next := state
		next.DisableAll = false
		return next, nil
	default:
		return state, fmt.Errorf("unsupported action %T", action)
	}
}
