package enums

import "fmt"

// Operation names a gated billing operation.
type Operation string

const (
	OperationMain             Operation = "main"
	OperationSelectPlan       Operation = "select_plan"
	OperationList             Operation = "list"
	OperationSignup           Operation = "signup"
	OperationChangePlanLatest Operation = "change_plan_latest"
	OperationCancelLatest     Operation = "cancel_latest"
	OperationReactivateLatest Operation = "reactivate_latest"

	OperationChangePlan   Operation = "change_plan"
	OperationCancel       Operation = "cancel"
	OperationReactivate   Operation = "reactivate"
	OperationRedeemCoupon Operation = "redeem_coupon"
	OperationInvoices     Operation = "invoices"
	OperationBilling      Operation = "billing"
)

var validOperations = []Operation{
	OperationMain,
	OperationSelectPlan,
	OperationList,
	OperationSignup,
	OperationChangePlanLatest,
	OperationCancelLatest,
	OperationReactivateLatest,
	OperationChangePlan,
	OperationCancel,
	OperationReactivate,
	OperationRedeemCoupon,
	OperationInvoices,
	OperationBilling,
}

func (o Operation) String() string {
	return string(o)
}

func (o Operation) IsValid() bool {
	for _, candidate := range validOperations {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsLatestShortcut reports whether the operation targets "the" subscription of a single-plan owner.
func (o Operation) IsLatestShortcut() bool {
	switch o {
	case OperationChangePlanLatest, OperationCancelLatest, OperationReactivateLatest:
		return true
	}
	return false
}

func ParseOperation(value string) (Operation, error) {
	for _, candidate := range validOperations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid operation %q", value)
}
