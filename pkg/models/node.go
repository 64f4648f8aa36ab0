package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// NodeKind discriminates the node variants of a workflow graph.
type NodeKind string

const (
	NodeKindTrigger   NodeKind = "trigger"
	NodeKindCondition NodeKind = "condition"
	NodeKindAction    NodeKind = "action"
	NodeKindDelay     NodeKind = "delay"
	NodeKindApproval  NodeKind = "approval"
)

// ErrUnknownNodeKind is returned when a node carries a kind outside the closed set.
var ErrUnknownNodeKind = errors.New("unknown node kind")

// NodeSpec is the kind-specific configuration of a node. The set of
// implementations is closed: TriggerSpec, ConditionSpec, ActionSpec, DelaySpec
// and ApprovalSpec.
type NodeSpec interface {
	Kind() NodeKind
	sealed()
}

// TriggerSpec configures the entry node. It carries no parameters.
type TriggerSpec struct{}

// LogicOperator aggregates the results of a condition group.
type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// Condition is either a single {field, operator, value} triple or, when
// Conditions or LogicOperator is set, a group reduced with LogicOperator.
type Condition struct {
	Field         string        `json:"field,omitempty"`
	Operator      string        `json:"operator,omitempty"`
	Value         any           `json:"value,omitempty"`
	Conditions    []Condition   `json:"conditions,omitempty"`
	LogicOperator LogicOperator `json:"logic_operator,omitempty"`
}

// IsGroup reports whether the condition aggregates sub-conditions. Anything
// else is a leaf, even with an empty field and operator.
func (c Condition) IsGroup() bool {
	return len(c.Conditions) > 0 || c.LogicOperator != ""
}

// IsValid reports whether the operator is AND or OR.
func (l LogicOperator) IsValid() bool {
	return l == LogicAnd || l == LogicOr
}

// ConditionSpec configures a branching node.
type ConditionSpec struct {
	Conditions    []Condition   `json:"conditions"`
	LogicOperator LogicOperator `json:"logic_operator,omitempty"`
	// Expression is an optional expr-lang expression ANDed with Conditions.
	Expression string `json:"expression,omitempty"`
}

// Group returns the spec as a single condition group.
func (s ConditionSpec) Group() Condition {
	return Condition{Conditions: s.Conditions, LogicOperator: s.LogicOperator}
}

// ActionType identifies a side-effecting action handler.
type ActionType string

const (
	ActionSendEmail         ActionType = "send_email"
	ActionSendWhatsApp      ActionType = "send_whatsapp"
	ActionCreateReminder    ActionType = "create_reminder"
	ActionCreateAppointment ActionType = "create_appointment"
	ActionUpdateStatus      ActionType = "update_status"
	ActionWebhook           ActionType = "webhook"
)

// ActionSpec configures an action node.
type ActionSpec struct {
	ActionType ActionType     `json:"action_type"`
	Params     map[string]any `json:"params,omitempty"`
	// ContinueOnError overrides the engine default for failed actions when set.
	ContinueOnError *bool `json:"continue_on_error,omitempty"`
}

// DelayUnit is the unit of a DelaySpec duration.
type DelayUnit string

const (
	DelaySeconds DelayUnit = "seconds"
	DelayMinutes DelayUnit = "minutes"
	DelayHours   DelayUnit = "hours"
	DelayDays    DelayUnit = "days"
)

// DelaySpec configures a delay node.
type DelaySpec struct {
	Duration float64   `json:"duration"`
	Unit     DelayUnit `json:"unit"`
}

// ErrInvalidDelay is returned for negative durations or unknown units.
var ErrInvalidDelay = errors.New("invalid delay")

// ToDuration converts the spec into a time.Duration.
func (d DelaySpec) ToDuration() (time.Duration, error) {
	if d.Duration < 0 {
		return 0, fmt.Errorf("%w: negative duration %v", ErrInvalidDelay, d.Duration)
	}

	var unit time.Duration

	switch d.Unit {
	case DelaySeconds, "":
		unit = time.Second
	case DelayMinutes:
		unit = time.Minute
	case DelayHours:
		unit = time.Hour
	case DelayDays:
		unit = 24 * time.Hour
	default:
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidDelay, d.Unit)
	}

	return time.Duration(d.Duration * float64(unit)), nil
}

// ApprovalSpec configures an approval node. It is metadata for whoever
// solicits the decision; the engine only suspends on it.
type ApprovalSpec struct {
	Approvers []string `json:"approvers,omitempty"`
	Message   string   `json:"message,omitempty"`
}

func (TriggerSpec) Kind() NodeKind   { return NodeKindTrigger }
func (ConditionSpec) Kind() NodeKind { return NodeKindCondition }
func (ActionSpec) Kind() NodeKind    { return NodeKindAction }
func (DelaySpec) Kind() NodeKind     { return NodeKindDelay }
func (ApprovalSpec) Kind() NodeKind  { return NodeKindApproval }

func (TriggerSpec) sealed()   {}
func (ConditionSpec) sealed() {}
func (ActionSpec) sealed()    {}
func (DelaySpec) sealed()     {}
func (ApprovalSpec) sealed()  {}

// WorkflowNode is one vertex of a workflow graph.
type WorkflowNode struct {
	ID         string   `json:"id"          validate:"required"`
	WorkflowID string   `json:"workflow_id"`
	Kind       NodeKind `json:"kind"        validate:"required,oneof=trigger condition action delay approval"`
	Name       string   `json:"name"`
	Spec       NodeSpec `json:"-"`
	PositionX  int      `json:"position_x"`
	PositionY  int      `json:"position_y"`
}

type nodeJSON struct {
	ID         string          `json:"id"`
	WorkflowID string          `json:"workflow_id,omitempty"`
	Kind       NodeKind        `json:"kind"`
	Name       string          `json:"name,omitempty"`
	Config     json.RawMessage `json:"config,omitempty"`
	PositionX  int             `json:"position_x"`
	PositionY  int             `json:"position_y"`
}

// MarshalJSON encodes the node with its spec under "config".
func (n WorkflowNode) MarshalJSON() ([]byte, error) {
	spec := n.Spec
	if spec == nil {
		var err error

		spec, err = DecodeNodeSpec(n.Kind, nil)
		if err != nil {
			return nil, err
		}
	}

	config, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s node config: %w", n.Kind, err)
	}

	return json.Marshal(nodeJSON{
		ID:         n.ID,
		WorkflowID: n.WorkflowID,
		Kind:       n.Kind,
		Name:       n.Name,
		Config:     config,
		PositionX:  n.PositionX,
		PositionY:  n.PositionY,
	})
}

// UnmarshalJSON decodes "config" into the spec type selected by "kind".
func (n *WorkflowNode) UnmarshalJSON(data []byte) error {
	var raw nodeJSON

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	spec, err := DecodeNodeSpec(raw.Kind, raw.Config)
	if err != nil {
		return fmt.Errorf("node %s: %w", raw.ID, err)
	}

	n.ID = raw.ID
	n.WorkflowID = raw.WorkflowID
	n.Kind = raw.Kind
	n.Name = raw.Name
	n.Spec = spec
	n.PositionX = raw.PositionX
	n.PositionY = raw.PositionY

	return nil
}

// DecodeNodeSpec decodes a raw JSON config for the given kind.
func DecodeNodeSpec(kind NodeKind, config []byte) (NodeSpec, error) {
	if len(config) == 0 || string(config) == "null" {
		config = []byte("{}")
	}

	switch kind {
	case NodeKindTrigger:
		return TriggerSpec{}, nil
	case NodeKindCondition:
		var spec ConditionSpec
		err := json.Unmarshal(config, &spec)

		return spec, wrapDecode(kind, err)
	case NodeKindAction:
		var spec ActionSpec
		err := json.Unmarshal(config, &spec)

		return spec, wrapDecode(kind, err)
	case NodeKindDelay:
		var spec DelaySpec
		err := json.Unmarshal(config, &spec)

		return spec, wrapDecode(kind, err)
	case NodeKindApproval:
		var spec ApprovalSpec
		err := json.Unmarshal(config, &spec)

		return spec, wrapDecode(kind, err)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeKind, kind)
	}
}

// EncodeNodeSpec encodes a node spec for storage.
func EncodeNodeSpec(spec NodeSpec) ([]byte, error) {
	if spec == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(spec)
}

func wrapDecode(kind NodeKind, err error) error {
	if err != nil {
		return fmt.Errorf("invalid %s config: %w", kind, err)
	}

	return nil
}

// ConnectionType labels a connection leaving a condition node.
type ConnectionType string

const (
	ConnectionDefault ConnectionType = ""
	ConnectionTrue    ConnectionType = "true"
	ConnectionFalse   ConnectionType = "false"
)

// Connection is a directed edge between two nodes of the same workflow.
type Connection struct {
	ID           string         `json:"id"`
	WorkflowID   string         `json:"workflow_id,omitempty"`
	SourceNodeID string         `json:"source_node_id" validate:"required"`
	TargetNodeID string         `json:"target_node_id" validate:"required"`
	Type         ConnectionType `json:"type,omitempty" validate:"omitempty,oneof=true false"`
}
