package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
)

// The feed bridges the row change topic to per-business Redis channels so
// connected clients only see their own rows.

func ChannelForBusiness(businessId string) string {
	return "rowchange:" + businessId
}

type Feed struct {
	Logger *logrus.Logger
}

func NewFeed(logger *logrus.Logger) *Feed {
	return &Feed{Logger: logger}
}

// Run subscribes to the row change topic and fans messages out to Redis.
// It blocks until the context is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	topicName := strings.TrimSpace(os.Getenv("PUBSUB_TOPIC"))
	if topicName == "" {
		return fmt.Errorf("PUBSUB_TOPIC is required")
	}
	subName := strings.TrimSpace(os.Getenv("ROW_CHANGE_SUBSCRIPTION"))
	if subName == "" {
		subName = "row-change-feed"
	}

	topic, err := config.CreateTopicIfNotExists(client, topicName)
	if err != nil {
		return err
	}
	sub, err := config.CreateSubscriptionIfNotExists(client, subName, topic)
	if err != nil {
		return err
	}

	return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		var msg config.RowChangeMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			// Malformed messages are acked, redelivery cannot fix them.
			m.Ack()
			return
		}
		if msg.BusinessId == "" {
			m.Ack()
			return
		}
		if err := f.forward(ctx, msg, m.Data); err != nil {
			if f.Logger != nil {
				f.Logger.WithFields(logrus.Fields{
					"field":       "realtime.Feed",
					"business_id": msg.BusinessId,
					"table_name":  msg.TableName,
					"row_id":      msg.RowId,
				}).Error("failed to forward row change: " + err.Error())
			}
			m.Nack()
			return
		}
		m.Ack()
	})
}

func (f *Feed) forward(ctx context.Context, msg config.RowChangeMessage, raw []byte) error {
	rdb := config.GetRedisDB()
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rdb.Publish(ctx, ChannelForBusiness(msg.BusinessId), raw).Err()
}

// StreamHandler streams the caller's row changes as server-sent events. The
// client merges each event into its cache by row id.
func StreamHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, ok := utils.GetBusinessIdFromContext(c.Request.Context())
		if !ok || businessId == "" {
			c.JSON(401, gin.H{"error": "business id is required"})
			return
		}
		rdb := config.GetRedisDB()
		if rdb == nil {
			c.JSON(503, gin.H{"error": "feed not available"})
			return
		}

		sub := rdb.Subscribe(c.Request.Context(), ChannelForBusiness(businessId))
		defer sub.Close()

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		ch := sub.Channel()
		c.Stream(func(w io.Writer) bool {
			select {
			case m, open := <-ch:
				if !open {
					return false
				}
				c.SSEvent("row_change", m.Payload)
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}
