package engine_test

import (
	"testing"

	"github.com/lumenlabs/chainflow/internal/assert"
	"github.com/lumenlabs/chainflow/internal/engine"
	"github.com/lumenlabs/chainflow/pkg/api"
)

func TestHubPublishSubscribe(t *testing.T) {
	as := assert.New(t)
	hub := engine.NewHub()

	ch1, cancel1 := hub.Subscribe()
	ch2, cancel2 := hub.Subscribe()
	defer cancel2()
	as.Equal(2, hub.SubscriberCount())

	flow := runningFlow(txStep(api.StepMonitoring))
	hub.Publish(flow)

	got1 := <-ch1
	got2 := <-ch2
	as.Equal(flow.ID, got1.ID)
	as.Equal(flow.ID, got2.ID)
	// Subscribers get private clones
	as.NotSame(got1, got2)
	as.NotSame(flow.Steps[0], got1.Steps[0])

	cancel1()
	as.Equal(1, hub.SubscriberCount())
	_, open := <-ch1
	as.False(open)

	// Cancelling twice is safe
	cancel1()
}

func TestHubSlowSubscriberDropsUpdates(t *testing.T) {
	as := assert.New(t)
	hub := engine.NewHub()

	_, cancel := hub.Subscribe()
	defer cancel()

	// Publishing far past the buffer must never block
	flow := runningFlow(txStep(api.StepMonitoring))
	for range 200 {
		hub.Publish(flow)
	}
	as.Equal(1, hub.SubscriberCount())
}
