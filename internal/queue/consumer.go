package queue

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// StartConsumer connects to RabbitMQ, declares the booking.events queue
// (durable), and starts consuming. Each event is appended to
// logs/booking.log in a single-line, human-friendly format. The function
// runs a reconnect loop with exponential backoff and never returns under
// normal operation; processing errors are logged and the offending
// message is rejected without requeue so the consumer cannot spin on a
// poison message.
func StartConsumer(logger *zap.Logger) {
    url := brokerURL()
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            logger.Warn("booking-consumer: dial failed, retrying",
                zap.Error(err), zap.Duration("backoff", backoff))
            time.Sleep(backoff)
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        if err := consumeLoop(conn, logger); err != nil {
            logger.Warn("booking-consumer: consume loop ended, reconnecting", zap.Error(err))
            time.Sleep(2 * time.Second)
        }
    }
}

func consumeLoop(conn *amqp.Connection, logger *zap.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        logger.Warn("booking-consumer: set QoS failed", zap.Error(err))
    }

    if _, err := ch.QueueDeclare(bookingQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(bookingQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := handleMessage(d.Body); err != nil {
            logger.Warn("booking-consumer: handle message failed", zap.Error(err))
            _ = d.Nack(false, false) // reject, do not requeue
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

// handleMessage appends one event line to logs/booking.log.
func handleMessage(body []byte) error {
    var ev BookingEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll("logs", 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    fpath := filepath.Join("logs", "booking.log")
    f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders one event as a single log line. Split out from
// handleMessage so the format is testable without a broker.
func FormatLine(ev BookingEvent) string {
    switch ev.Kind {
    case KindSlotReserved, KindSlotCancelled:
        return fmt.Sprintf("[%s] %s | consultant_id=%d | user_id=%d | slot=(%d,%d) | price=%d credits\n",
            ev.OccurredAt, ev.Kind, ev.ConsultantID, ev.UserID, ev.Day, ev.Hour, ev.PriceCredits)
    case KindSessionClosed:
        return fmt.Sprintf("[%s] %s | consultant_id=%d | user_id=%d | reason=%s\n",
            ev.OccurredAt, ev.Kind, ev.ConsultantID, ev.UserID, ev.Reason)
    }
    return fmt.Sprintf("[%s] %s | consultant_id=%d | user_id=%d\n",
        ev.OccurredAt, ev.Kind, ev.ConsultantID, ev.UserID)
}
