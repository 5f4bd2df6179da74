package services

import (
	"shophub-realtime/internal/events"
	"shophub-realtime/pkg/logger"
)

// EventPublisher is the storefront-facing facade the rest of the backend
// calls after catalog or order mutations. Each method resolves its target
// channel from the event name and returns the number of connections the
// envelope was handed to. Zero subscribers is a valid outcome.
type EventPublisher struct {
	publisher events.Publisher
	logger    *logger.Logger
}

func NewEventPublisher(publisher events.Publisher, l *logger.Logger) *EventPublisher {
	return &EventPublisher{publisher: publisher, logger: l}
}

// PublishCategoryChange broadcasts a category mutation to the storefront.
// Action "changed" signals a structural change, anything else a content
// update.
func (p *EventPublisher) PublishCategoryChange(action string, category interface{}) int {
	name := events.EventCategoriesUpdated
	if action == "changed" {
		name = events.EventCategoriesChanged
	}
	return p.dispatch(name, map[string]interface{}{
		"action":   action,
		"category": category,
	})
}

// PublishProductChange broadcasts a product mutation. A "stock-changed"
// action is rewritten into the dedicated stock:updated event so storefront
// listeners get a stable shape for quantity updates.
func (p *EventPublisher) PublishProductChange(action string, product map[string]interface{}) int {
	if action == "stock-changed" {
		id, _ := product["id"].(string)
		if stock, ok := product["newStock"].(int); ok {
			return p.PublishStockChange(id, stock)
		}
	}
	return p.dispatch(events.EventProductsChanged, map[string]interface{}{
		"action":  action,
		"product": product,
	})
}

// PublishStockChange broadcasts a quantity update for one product.
func (p *EventPublisher) PublishStockChange(productID string, newStock int) int {
	return p.dispatch(events.EventStockUpdated, map[string]interface{}{
		"productId": productID,
		"newStock":  newStock,
	})
}

// PublishOrderChange notifies operators about an order mutation. New orders
// additionally ring the order:notification bell.
func (p *EventPublisher) PublishOrderChange(action string, order interface{}) int {
	n := p.dispatch(events.EventOrdersChanged, map[string]interface{}{
		"action": action,
		"order":  order,
	})
	if action == "created" {
		p.dispatch(events.EventOrderNotification, map[string]interface{}{
			"order": order,
		})
	}
	return n
}

// PublishLowStockAlert warns operators that a product dropped below its
// reorder threshold.
func (p *EventPublisher) PublishLowStockAlert(productID string, stock int) int {
	return p.dispatch(events.EventLowStockAlert, map[string]interface{}{
		"productId": productID,
		"stock":     stock,
	})
}

// PublishAnalyticsSnapshot pushes a fresh metrics snapshot to operator
// dashboards.
func (p *EventPublisher) PublishAnalyticsSnapshot(snapshot interface{}) int {
	return p.dispatch(events.EventAnalyticsUpdated, snapshot)
}

func (p *EventPublisher) dispatch(name string, data interface{}) int {
	if p.publisher == nil {
		return 0
	}
	channel := events.ResolveChannel(name)
	n := p.publisher.Publish(channel, events.New(name, data))
	p.logger.Debugf("dispatched %s to %d connections on %s", name, n, channel)
	return n
}
