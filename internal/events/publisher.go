// Package events publishes catalog and order changes to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
)

const (
	SubjectProductImported     = "product.imported"
	SubjectProductUpdated      = "product.updated"
	SubjectOrderPlaced         = "order.placed"
	SubjectSupplierOrderUpdate = "supplier.order.updated"
)

// Publisher emits domain events. Implementations must not block callers
// on broker outages for longer than the context allows.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
}

// ProductEvent is emitted when an imported product is created or refreshed.
type ProductEvent struct {
	EventType         string    `json:"eventType"`
	Timestamp         time.Time `json:"timestamp"`
	ProductID         string    `json:"productId"`
	SupplierID        string    `json:"supplierId,omitempty"`
	SupplierProductID string    `json:"supplierProductId,omitempty"`
	Name              string    `json:"name,omitempty"`
	Price             string    `json:"price,omitempty"`
	Status            string    `json:"status,omitempty"`
	CategoryID        string    `json:"categoryId,omitempty"`
	Stock             int       `json:"stock"`
}

// OrderEvent is emitted on checkout and on supplier fulfilment changes.
type OrderEvent struct {
	EventType       string    `json:"eventType"`
	Timestamp       time.Time `json:"timestamp"`
	OrderID         string    `json:"orderId"`
	OrderNumber     string    `json:"orderNumber"`
	UserID          string    `json:"userId,omitempty"`
	Status          string    `json:"status"`
	Total           string    `json:"total,omitempty"`
	SupplierOrderID string    `json:"supplierOrderId,omitempty"`
	SupplierStatus  string    `json:"supplierStatus,omitempty"`
	TrackingNumber  string    `json:"trackingNumber,omitempty"`
}

var streams = []jetstream.StreamConfig{
	{Name: "PRODUCT_EVENTS", Subjects: []string{"product.>"}},
	{Name: "ORDER_EVENTS", Subjects: []string{"order.>"}},
	{Name: "SUPPLIER_EVENTS", Subjects: []string{"supplier.>"}},
}

// NATSPublisher publishes JSON events to JetStream
type NATSPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *logrus.Entry
}

// NewNATSPublisher connects to NATS and ensures the event streams exist
func NewNATSPublisher(ctx context.Context, natsURL string, logger *logrus.Logger) (*NATSPublisher, error) {
	log := logger.WithField("component", "events")

	nc, err := nats.Connect(natsURL,
		nats.Name("dropship-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectBufSize(8*1024*1024),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("Reconnected to NATS")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.WithError(err).Warn("Disconnected from NATS")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.WithError(err).Error("NATS error")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &NATSPublisher{nc: nc, js: js, logger: log}
	p.ensureStreams(ctx)
	return p, nil
}

func (p *NATSPublisher) ensureStreams(ctx context.Context) {
	for _, cfg := range streams {
		cfg.Retention = jetstream.LimitsPolicy
		cfg.MaxAge = 7 * 24 * time.Hour
		cfg.Storage = jetstream.FileStorage
		cfg.Replicas = 1
		if _, err := p.js.CreateOrUpdateStream(ctx, cfg); err != nil {
			p.logger.WithError(err).WithField("stream", cfg.Name).Warn("Could not create stream")
		}
	}
}

// Publish marshals payload and publishes it on subject
func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
	}
}

// NoopPublisher discards events; used when NATS_URL is not configured
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	return nil
}
