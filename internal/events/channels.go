package events

import "fmt"

// Channel names. Kind channels hold every connection of one declared kind;
// the storefront channel holds every live connection.
const (
	ChannelOperators  = "operators"
	ChannelShoppers   = "shoppers"
	ChannelStorefront = "storefront"
)

func ConversationChannel(conversationID string) string {
	return fmt.Sprintf("conversation:%s", conversationID)
}

// ResolveChannel maps a domain event name to its target channel: operator-only
// events stay off the storefront, everything else is visible to any client.
func ResolveChannel(event string) string {
	switch event {
	case EventLowStockAlert, EventAnalyticsUpdated, EventOrdersChanged, EventOrderNotification, EventAdminNewMessage, EventAdminConversation:
		return ChannelOperators
	default:
		return ChannelStorefront
	}
}
