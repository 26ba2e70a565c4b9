package contracts

// Exchanges
const (
	ExchangeRideTopic   = "ride_topic"
	ExchangeDriverTopic = "driver_topic"
	ExchangeChatTopic   = "chat_topic"
)

// Queues
const (
	QueueRideNotifications   = "ride_notifications"
	QueueDriverNotifications = "driver_notifications"
	QueueChatNotifications   = "chat_notifications"
)

// Routing patterns
const (
	RouteRidePendingPrefix   = "ride.pending."   // {ride_id}
	RouteRideStatusPrefix    = "ride.status."    // {status}
	RouteSessionKickedPrefix = "driver.session." // {driver_id}
	RouteChatMessagePrefix   = "chat.message."   // {ride_id}
)
