// Package queue_publisher publishes domain events to RabbitMQ.  Errors are
// logged and returned so callers can ignore them without interrupting the
// request that produced the event.
package queue_publisher

import (
    "context"
    "encoding/json"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/logger"
    q "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/queue"
)

// Publisher dials the broker per publish.  Edits are rare admin actions,
// so a long-lived channel is not worth its reconnect handling.
type Publisher struct {
    URL string
    Log logger.Logger
}

func NewPublisher(url string, log logger.Logger) *Publisher {
    return &Publisher{URL: url, Log: log.Action("publish_user_updated")}
}

// PublishUserUpdated sends ev to the durable admin.user.updated queue as a
// persistent message.  A missing EventID is filled with a random UUID.
func (p *Publisher) PublishUserUpdated(ctx context.Context, ev q.UserUpdatedEvent) error {
    if ev.EventID == "" {
        ev.EventID = uuid.NewString()
    }
    conn, err := amqp.Dial(p.URL)
    if err != nil {
        p.Log.Error("rabbitmq dial failed", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.Log.Error("rabbitmq channel open failed", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(
        q.UserUpdatedQueue, // name
        true,               // durable
        false,              // autoDelete
        false,              // exclusive
        false,              // noWait
        nil,                // args
    ); err != nil {
        p.Log.Error("rabbitmq queue declare failed", err)
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        p.Log.Error("marshal event failed", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.EventID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", q.UserUpdatedQueue, false, false, pub); err != nil {
        p.Log.Error("rabbitmq publish failed", err, "event_id", ev.EventID)
        return err
    }
    p.Log.Debug("event published", "event_id", ev.EventID, "app", ev.App)
    return nil
}
