package contracts

// Exchanges
const (
	ExchangeDriverTopic = "driver_topic"
)

// Queues
const (
	// QueueDriverNotificationsPrefix + {driver_id} is the per-driver
	// notification queue the dispatch side publishes ride requests to.
	QueueDriverNotificationsPrefix = "driver_notifications."
)

// Routing patterns
const (
	RouteDriverNotifyPrefix = "driver.notify." // {driver_id}
)

// WebSocket frame types
const (
	WSTypeAuth         = "auth"
	WSTypeAuthSuccess  = "auth_success"
	WSTypeAuthError    = "auth_error"
	WSTypeNotification = "notification"
	WSTypeError        = "error"
)

// Push transports
const (
	TransportWebSocket = "websocket"
	TransportAMQP      = "amqp"
)
