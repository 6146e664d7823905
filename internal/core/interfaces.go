package core

import (
	"context"

	"vehicle-interface/internal/canbus"
	"vehicle-interface/internal/config"
	"vehicle-interface/internal/engagement"
	"vehicle-interface/internal/fingerprint"
	"vehicle-interface/internal/messaging"
	"vehicle-interface/internal/store"
	"vehicle-interface/internal/types"
)

// MessagingClient defines the Redis operations needed by CarInterface
type MessagingClient interface {
	SetCallbacks(callbacks messaging.Callbacks)
	Connect() error
	StartListening() error
	Close() error

	// Settings
	LoadSettings() (map[string]string, error)

	// Publishing
	PublishState(state types.SystemState) error
	PublishConfiguration(cfg *config.VehicleConfiguration) error
	PublishCycle(out engagement.Output) error
}

// FrameSource feeds bus traffic to an observer between Start and Stop.
type FrameSource interface {
	Start(ctx context.Context)
	Stop()
}

// FrameSourceFunc opens the buses for one detection window.
type FrameSourceFunc func(obs canbus.Observer) (FrameSource, error)

// SessionRecorder keeps a record of every resolved configuration.
type SessionRecorder interface {
	CreateSession(ctx context.Context, model string, fp fingerprint.Set, topo types.HardwareTopology) (store.Session, error)
}
