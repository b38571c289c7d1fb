package domain

import "slices"

// Rule is one row of the transition table.
type Rule struct {
	// Action names the operation in errors and logs.
	Action string
	// Target is the status the order moves to.
	Target OrderStatus
	// From lists the legal source statuses.
	From []OrderStatus
	// ReleasesStock marks transitions that return reserved stock.
	ReleasesStock bool
}

// Allows reports whether the rule applies to an order in status s.
func (r Rule) Allows(s OrderStatus) bool {
	return slices.Contains(r.From, s)
}

var (
	ApproveRule = Rule{Action: "approve", Target: StatusApproved, From: []OrderStatus{StatusPending}}
	RejectRule  = Rule{Action: "reject", Target: StatusRejected, From: []OrderStatus{StatusPending}, ReleasesStock: true}
	CancelRule  = Rule{Action: "cancel", Target: StatusCancelled, From: []OrderStatus{StatusPending, StatusApproved}, ReleasesStock: true}
)

// statusUpdateRules drive the generic admin status update, keyed by target.
var statusUpdateRules = map[OrderStatus]Rule{
	StatusPending:   {Action: "reopen", Target: StatusPending, From: []OrderStatus{StatusApproved}},
	StatusApproved:  {Action: "process", Target: StatusApproved, From: []OrderStatus{StatusPending}},
	StatusShipped:   {Action: "ship", Target: StatusShipped, From: []OrderStatus{StatusApproved}},
	StatusDelivered: {Action: "deliver", Target: StatusDelivered, From: []OrderStatus{StatusShipped}},
	StatusCancelled: {Action: "cancel", Target: StatusCancelled, From: []OrderStatus{StatusPending, StatusApproved}, ReleasesStock: true},
}

// StatusLabels maps the labels accepted by the admin status update to statuses.
var StatusLabels = map[string]OrderStatus{
	"Pending":    StatusPending,
	"Processing": StatusApproved,
	"Shipped":    StatusShipped,
	"Delivered":  StatusDelivered,
	"Cancelled":  StatusCancelled,
}

// labelOrder fixes the order labels are listed in error messages.
var labelOrder = []string{"Pending", "Processing", "Shipped", "Delivered", "Cancelled"}

// RuleForLabel maps an admin label to its transition rule.
func RuleForLabel(label string) (Rule, error) {
	status, ok := StatusLabels[label]
	if !ok {
		return Rule{}, Invalid("invalid status %q: valid statuses are %v", label, labelOrder)
	}
	return statusUpdateRules[status], nil
}
