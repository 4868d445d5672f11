package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ChatMetrics tracks client-side messaging activity
type ChatMetrics struct {
	MessagesPublished  *prometheus.CounterVec
	PublishFailures    prometheus.Counter
	SnapshotsDelivered prometheus.Counter
	TypingUpdates      prometheus.Counter
	MediaUploads       prometheus.Counter
}

var (
	chatMetricsInstance *ChatMetrics
	chatMetricsOnce     sync.Once
)

// Chat returns the process-wide chat metrics, registering them on first use
func Chat() *ChatMetrics {
	chatMetricsOnce.Do(func() {
		chatMetricsInstance = &ChatMetrics{
			MessagesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "chatlink_messages_published_total",
				Help: "Messages published to a conversation, by message kind",
			}, []string{"kind"}),
			PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "chatlink_publish_failures_total",
				Help: "Message publishes that returned an error from the backend",
			}),
			SnapshotsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "chatlink_snapshots_delivered_total",
				Help: "Full conversation snapshots delivered to live subscribers",
			}),
			TypingUpdates: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "chatlink_typing_updates_total",
				Help: "Writes to the shared typing field",
			}),
			MediaUploads: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "chatlink_media_uploads_total",
				Help: "Media blobs uploaded to object storage",
			}),
		}
		prometheus.MustRegister(
			chatMetricsInstance.MessagesPublished,
			chatMetricsInstance.PublishFailures,
			chatMetricsInstance.SnapshotsDelivered,
			chatMetricsInstance.TypingUpdates,
			chatMetricsInstance.MediaUploads,
		)
	})
	return chatMetricsInstance
}
