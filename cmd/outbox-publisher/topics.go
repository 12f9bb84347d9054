package main

import (
	"context"
	"errors"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisherFactory func(topic string) publisher

// topicPublishers hands out one publisher per topic for the life of the
// process.
type topicPublishers struct {
	mu     sync.Mutex
	open   func(topic string) publisher
	byName map[string]publisher
}

func newTopicPublishers(open publisherFactory) *topicPublishers {
	return &topicPublishers{open: open, byName: map[string]publisher{}}
}

func (t *topicPublishers) get(topic string) publisher {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pub, ok := t.byName[topic]; ok {
		return pub
	}
	pub := t.open(topic)
	if pub != nil {
		t.byName[topic] = pub
	}
	return pub
}

// stop flushes pending messages on every real Pub/Sub publisher.
func (t *topicPublishers) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name, pub := range t.byName {
		if gp, ok := pub.(*gcpPublisher); ok {
			gp.Stop()
		}
		delete(t.byName, name)
	}
}

func pubsubFactory(client pubSubClient) publisherFactory {
	return func(topic string) publisher {
		p := client.Publisher(topic)
		if p == nil {
			return nil
		}
		return &gcpPublisher{Publisher: p}
	}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return gcpResult{p.Publisher.Publish(ctx, msg)}
}

type gcpResult struct {
	*gcppubsub.PublishResult
}

func (r gcpResult) Get(ctx context.Context) (string, error) {
	if r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
