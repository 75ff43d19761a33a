package kafka

import (
	"log"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TopicBookingCreated   = "marketplace.booking.created"
	TopicBookingAccepted  = "marketplace.booking.accepted"
	TopicBookingRejected  = "marketplace.booking.rejected"
	TopicBookingCancelled = "marketplace.booking.cancelled"
	TopicBookingExpired   = "marketplace.booking.expired"
	TopicBookingPaid      = "marketplace.booking.paid"
	TopicTicketModerated  = "marketplace.ticket.moderated"
	TopicVendorFlagged    = "marketplace.vendor.flagged"
)

// AllTopics lists every topic the service publishes to, for startup creation.
func AllTopics() []string {
	return []string{
		TopicBookingCreated,
		TopicBookingAccepted,
		TopicBookingRejected,
		TopicBookingCancelled,
		TopicBookingExpired,
		TopicBookingPaid,
		TopicTicketModerated,
		TopicVendorFlagged,
	}
}

// EnsureTopicsExist creates Kafka topics if they don't already exist
func EnsureTopicsExist(brokers []string, topics []string) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", controller.Host+":"+strconv.Itoa(controller.Port))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		topicConfigs := []kafka.TopicConfig{
			{
				Topic:             topic,
				NumPartitions:     1,
				ReplicationFactor: 1,
			},
		}

		err = controllerConn.CreateTopics(topicConfigs...)
		if err != nil {
			if err.Error() == "kafka server: topic already exists" {
				log.Printf("Topic %s already exists", topic)
				continue
			}
			log.Printf("Error creating topic %s: %v", topic, err)
			// Continue trying to create other topics even if one fails
		} else {
			log.Printf("Created topic: %s", topic)
		}
	}

	// Wait a moment for topics to be fully created
	time.Sleep(1 * time.Second)
	return nil
}
