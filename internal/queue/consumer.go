package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/logger"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/model"
)

// ActivityStore persists consumed events.
type ActivityStore interface {
    Insert(ctx context.Context, a model.Activity) error
}

// StartActivityConsumer connects to RabbitMQ, declares the durable
// admin.user.updated queue and stores every event through store.  It
// reconnects with backoff until ctx is cancelled, then returns ctx.Err().
func StartActivityConsumer(ctx context.Context, url string, store ActivityStore, log logger.Logger) error {
    log = log.Action("activity_consumer")
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Warn("failed to dial broker", "err", err.Error(), "retry_in", backoff.String())
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, store, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn("consume loop ended, reconnecting", "err", fmt.Sprint(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, store ActivityStore, log logger.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn("set QoS failed", "err", err.Error())
    }
    if _, err := ch.QueueDeclare(UserUpdatedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(UserUpdatedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(ctx, store, d.Body); err != nil {
                log.Error("handle message failed", err)
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func handleMessage(ctx context.Context, store ActivityStore, body []byte) error {
    var ev UserUpdatedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.EventID == "" || ev.App == "" || ev.UserID == "" {
        return errors.New("event missing event_id, app or user_id")
    }
    if ev.UpdatedAt.IsZero() {
        ev.UpdatedAt = time.Now().UTC()
    }
    return store.Insert(ctx, model.Activity{
        EventID:   ev.EventID,
        App:       ev.App,
        UserID:    ev.UserID,
        Table:     ev.Table,
        Fields:    ev.Fields,
        UpdatedAt: ev.UpdatedAt,
    })
}
