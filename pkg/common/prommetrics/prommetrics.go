// Copyright © 2024 Chatwire. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package prommetrics registers the Prometheus collectors shared by the api
// instance and the push consumer.
package prommetrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OnlineUserGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatwire_online_user_num",
		Help: "The number of users with at least one live connection on this instance.",
	})
	OnlineConnGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatwire_online_conn_num",
		Help: "The number of live websocket connections on this instance.",
	})
	MsgInsertSuccessCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatwire_msg_insert_success_total",
		Help: "The number of messages persisted successfully.",
	})
	MsgInsertFailedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatwire_msg_insert_failed_total",
		Help: "The number of message persist failures.",
	})
	BusPublishFailedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatwire_bus_publish_failed_total",
		Help: "The number of failed bus publishes that fell back to local broadcast.",
	})
	OfflinePushSuccessCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatwire_offline_push_success_total",
		Help: "The number of device pushes accepted by the provider.",
	})
	OfflinePushFailedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatwire_offline_push_failed_total",
		Help: "The number of device pushes rejected by the provider.",
	})
	InvalidTokenReapedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatwire_invalid_token_reaped_total",
		Help: "The number of device tokens deleted after provider invalid-token errors.",
	})
	QueueRetryCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatwire_queue_retry_total",
		Help: "The number of events re-enqueued to the retry queue.",
	})
	QueueDeadLetterCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatwire_queue_dead_letter_total",
		Help: "The number of events parked on the DLQ.",
	})
)

// Start serves /metrics on the given port. It blocks, so callers run it in
// its own goroutine.
func Start(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
