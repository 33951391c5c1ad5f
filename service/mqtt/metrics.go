// Copyright 2024 FieldNet authors
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

package mqtt

import (
	"github.com/fieldnet/NodeWorker/pkg/metrics"
)

const (
	subSystem = "mqtt"
)

var (
	// Number of published messages
	messagesPublishedTotal = metrics.MustRegisterCounter(subSystem,
		"messages_published_total",
		"Number of published messages")

	// Number of received messages
	messagesReceivedTotal = metrics.MustRegisterCounter(subSystem,
		"messages_received_total",
		"Number of received messages")

	// Number of dropped messages
	messagesDroppedTotal = metrics.MustRegisterCounter(subSystem,
		"messages_dropped_total",
		"Number of messages dropped because a subscription queue was full")
)
