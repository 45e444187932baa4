package notifications

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/courierline-backend/pkg/enums"
	"github.com/angelmondragon/courierline-backend/pkg/outbox/payloads"
)

type rendered struct {
	Title   string
	Message string
	Link    string
}

// render turns a notification request into inbox copy. Unknown templates are
// an error so the event lands in the logs instead of an empty inbox row.
func render(req payloads.NotificationRequestedEvent) (rendered, error) {
	number := strings.TrimSpace(req.Data["order_number"])
	if number == "" {
		number = req.OrderID.String()
	}
	orderLink := fmt.Sprintf("/orders/%s", req.OrderID)
	refundLink := orderLink
	if refundID := strings.TrimSpace(req.Data["refund_id"]); refundID != "" {
		refundLink = fmt.Sprintf("/orders/%s/refunds/%s", req.OrderID, refundID)
	}

	switch req.Template {
	case enums.NotificationOrderStatusChanged:
		status := strings.ReplaceAll(req.Data["status"], "_", " ")
		if status == "" {
			status = "updated"
		}
		return rendered{
			Title:   fmt.Sprintf("Order %s update", number),
			Message: fmt.Sprintf("Your order %s is now %s.", number, status),
			Link:    orderLink,
		}, nil
	case enums.NotificationOrderRiderAssigned:
		return rendered{
			Title:   "New delivery assigned",
			Message: fmt.Sprintf("Order %s has been assigned to you.", number),
			Link:    fmt.Sprintf("/rider/orders/%s", req.OrderID),
		}, nil
	case enums.NotificationOrderCancelled:
		return rendered{
			Title:   "Order cancelled",
			Message: fmt.Sprintf("Order %s was cancelled.", number),
			Link:    orderLink,
		}, nil
	case enums.NotificationOrderRejected:
		return rendered{
			Title:   "Order rejected",
			Message: fmt.Sprintf("The store could not accept order %s.", number),
			Link:    orderLink,
		}, nil
	case enums.NotificationRefundApproved:
		return rendered{
			Title:   "Refund approved",
			Message: fmt.Sprintf("Your refund for order %s was approved.", number),
			Link:    refundLink,
		}, nil
	case enums.NotificationRefundRejected:
		return rendered{
			Title:   "Refund declined",
			Message: fmt.Sprintf("Your refund request for order %s was declined.", number),
			Link:    refundLink,
		}, nil
	case enums.NotificationRefundCompleted:
		return rendered{
			Title:   "Refund completed",
			Message: fmt.Sprintf("The refund for order %s was credited to your wallet.", number),
			Link:    refundLink,
		}, nil
	default:
		return rendered{}, fmt.Errorf("unknown notification template %q", req.Template)
	}
}
