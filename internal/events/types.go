package events

// Inbound event names
const (
	EventDeclareKind     = "declare-kind"
	EventChatUserJoined  = "chat:user-joined"
	EventChatSendMessage = "chat:send-message"
	EventChatMarkAsRead  = "chat:mark-as-read"
	EventChatUserTyping  = "chat:user-typing"
	EventJoinChat        = "join-chat"
	EventSendMessage     = "send-message"
	EventMarkRead        = "mark-read"
	EventTyping          = "typing"
)

// Outbound chat events
const (
	EventConnectionSuccess = "connection-success"
	EventChatJoinedSuccess = "chat:joined-success"
	EventChatNewMessage    = "chat:new-message"
	EventChatAdminMessage  = "chat:new-message-from-admin"
	EventChatMessageSent   = "chat:message-sent"
	EventChatUserOnline    = "chat:user-online"
	EventChatUserOffline   = "chat:user-offline"
	EventChatMessagesRead  = "chat:messages-read"
	EventAdminNewMessage   = "admin:new-message"
	EventAdminConversation = "admin:conversation-updated"
	EventError             = "error"
)

// Outbound domain events
const (
	EventCategoriesUpdated = "categories:updated"
	EventCategoriesChanged = "categories:changed"
	EventProductsChanged   = "products:changed"
	EventStockUpdated      = "stock:updated"
	EventOrdersChanged     = "orders:changed"
	EventOrderNotification = "order:notification"
	EventAnalyticsUpdated  = "analytics:updated"
	EventLowStockAlert     = "alert:low-stock"
)
