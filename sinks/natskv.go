package sinks

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/InfiniteXqz/roblox-rap-updater/pipeline"
)

// NATSMirror puts the published bytes into a JetStream key-value bucket
// under the entry key, so consumers can watch the bucket for new snapshots.
type NATSMirror struct {
	kv jetstream.KeyValue
}

var _ pipeline.Mirror = (*NATSMirror)(nil)

// NewNATSMirror creates the bucket or opens it when it already exists.
func NewNATSMirror(ctx context.Context, js jetstream.JetStream, bucket string) (*NATSMirror, error) {
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "published RAP snapshots",
		History:     5,
	})
	if errors.Is(err, jetstream.ErrBucketExists) {
		kv, err = js.KeyValue(ctx, bucket)
	}
	if err != nil {
		return nil, fmt.Errorf("open kv bucket %s: %w", bucket, err)
	}
	return &NATSMirror{kv: kv}, nil
}

func (m *NATSMirror) Name() string { return "nats" }

func (m *NATSMirror) Mirror(ctx context.Context, rec pipeline.Record) error {
	if _, err := m.kv.Put(ctx, rec.Key, rec.Body); err != nil {
		return fmt.Errorf("kv put %s: %w", rec.Key, err)
	}
	return nil
}
