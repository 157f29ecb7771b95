package api

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// FlowID is a unique identifier for a flow
type FlowID string

var flowCounter atomic.Uint64

// NewFlowID generates a flow identifier from the creation time, a
// process-monotonic counter, and a random suffix. The counter keeps IDs
// unique under concurrent creation within the same clock tick; the random
// suffix keeps them unique across process restarts
func NewFlowID() FlowID {
	suffix, _, _ := strings.Cut(uuid.NewString(), "-")
	return FlowID(fmt.Sprintf("%s-%d-%s",
		time.Now().UTC().Format("20060102t150405"),
		flowCounter.Add(1), suffix))
}
