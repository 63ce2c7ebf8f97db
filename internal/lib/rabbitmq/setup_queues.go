package rabbitmq

import "github.com/magabrotheeeer/studio-scheduler/internal/models"

// StudioExchange exchange для событий по записям на занятия.
const StudioExchange = "studio"

// QueueConfig очередь и ключ маршрутизации, по которому она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetRegistrationQueues очереди для событий по записям, по одной на тип события.
func GetRegistrationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "studio.registration.booked", RoutingKey: string(models.EventBooked)},
		{QueueName: "studio.registration.cancelled", RoutingKey: string(models.EventCancelled)},
		{QueueName: "studio.registration.attended", RoutingKey: string(models.EventAttended)},
		{QueueName: "studio.registration.absent", RoutingKey: string(models.EventAbsent)},
	}
}
