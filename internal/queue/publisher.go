package queue

import (
    "context"
    "encoding/json"
    "log"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"
)

// PublishPlayerNotified delivers the event to the waitlist.notified queue.
// Each publish dials a fresh connection; notified transitions are a
// handful per table per hour, and the consumer owns the long-lived
// connection.  The queue is durable and messages persistent, so a broker
// restart loses nothing already accepted.  Errors are logged and
// returned; callers fire this from a goroutine and may ignore the result.
func PublishPlayerNotified(ctx context.Context, ev PlayerNotifiedEvent) error {
    if ev.EventID == "" {
        ev.EventID = uuid.NewString()
    }
    conn, err := amqp.Dial(brokerURL())
    if err != nil {
        log.Printf("notify-publish: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("notify-publish: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(notifyQueueName, true, false, false, false, nil); err != nil {
        log.Printf("notify-publish: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        log.Printf("notify-publish: marshal failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", notifyQueueName, false, false, pub); err != nil {
        log.Printf("notify-publish: publish failed: %v", err)
        return err
    }
    return nil
}
