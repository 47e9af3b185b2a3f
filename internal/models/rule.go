package models

import "time"

// RuleType names the email field a rule matches against.
type RuleType string

const (
	RuleTypeSender  RuleType = "sender"
	RuleTypeSubject RuleType = "subject"
	RuleTypeBody    RuleType = "body"
	// RuleTypeDomain matches the part of the sender address after the first "@".
	RuleTypeDomain RuleType = "domain"
)

// RuleOperator names the comparison applied between the target text and the
// rule value.
type RuleOperator string

const (
	OperatorContains   RuleOperator = "contains"
	OperatorEquals     RuleOperator = "equals"
	OperatorStartsWith RuleOperator = "starts_with"
	OperatorEndsWith   RuleOperator = "ends_with"
	OperatorRegex      RuleOperator = "regex"
)

// Rule is an auto-tag rule. Rules are evaluated in descending priority order,
// ties broken by creation order; every enabled rule that matches is applied.
// The ingestion core treats rules as read-only.
type Rule struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id"`
	Type            RuleType     `json:"rule_type"`
	Operator        RuleOperator `json:"operator"`
	Value           string       `json:"value"`
	LabelID         string       `json:"label_id"`
	Enabled         bool         `json:"enabled"`
	Priority        int          `json:"priority"`
	SaveAttachments bool         `json:"save_attachments"`
	AttachmentPath  string       `json:"attachment_path,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Label is a user-defined tag attached to emails, many-to-many.
type Label struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}
