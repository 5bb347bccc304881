package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/stonehollow/mqtt-inbound/internal/inbound"
)

// ConnectionFailed records a failed connect attempt or connection loss.
//
// The write is non-blocking; data is batched and sent asynchronously, so
// the adapter's serialised lifecycle path is never delayed by the sink.
func (c *Client) ConnectionFailed(evt inbound.ConnectionFailedEvent) {
	if !c.IsConnected() {
		return
	}

	cause := ""
	if evt.Cause != nil {
		cause = evt.Cause.Error()
	}

	point := write.NewPoint(
		"connection_events",
		map[string]string{
			"client_id": evt.ClientID,
			"event":     "connection_failed",
		},
		map[string]interface{}{
			"cause": cause,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// Subscribed records a successful connect+subscribe along with the number
// of topics covered.
func (c *Client) Subscribed(evt inbound.SubscribedEvent) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"connection_events",
		map[string]string{
			"client_id": evt.ClientID,
			"event":     "subscribed",
		},
		map[string]interface{}{
			"topic_count": len(evt.Topics),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
