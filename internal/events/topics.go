package events

// Topic constants for domain events emitted by the service.
const (
	TopicOrderPlaced     = "order.placed"
	TopicVoucherRedeemed = "voucher.redeemed"
)
