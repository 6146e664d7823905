package messaging

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"vehicle-interface/internal/config"
	"vehicle-interface/internal/engagement"
	"vehicle-interface/internal/logger"
	"vehicle-interface/internal/telemetry"
	"vehicle-interface/internal/types"
)

const (
	settingsHash   = "settings"
	inputList      = "carstate:input"
	commandChannel = "carinterface"
	interfaceHash  = "carinterface"
	paramsHash     = "carparams"
	stateHash      = "carstate"
	stateStream    = "events:carstate"
	faultStream    = "events:faults"
	streamMaxLen   = 1000
)

// Commands accepted on the carinterface channel.
const (
	CommandReconfigure = "reconfigure"
	CommandShutdown    = "shutdown"
)

type Callbacks struct {
	CycleCallback       func(types.CycleInput) error
	ReconfigureCallback func() error
	ShutdownCallback    func() error
	SettingsCallback    func(string) error // settings key that changed
}

type RedisClient struct {
	client    *redis.Client
	callbacks Callbacks
	logger    *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewRedisClient(addr string, l *logger.Logger, callbacks Callbacks) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   0,
		}),
		callbacks: callbacks,
		logger:    l,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetCallbacks replaces the callbacks. It must be called before
// StartListening.
func (r *RedisClient) SetCallbacks(callbacks Callbacks) {
	r.callbacks = callbacks
}

func (r *RedisClient) Connect() error {
	r.logger.Infof("Attempting to connect to Redis at %s", r.client.Options().Addr)

	if err := r.client.Ping(r.ctx).Err(); err != nil {
		r.logger.Infof("Redis connection failed: %v", err)
		return errors.Wrap(err, "Redis connection failed")
	}
	r.logger.Infof("Successfully connected to Redis")
	return nil
}

// LoadSettings reads the settings hash once. A missing hash is empty.
func (r *RedisClient) LoadSettings() (map[string]string, error) {
	settings, err := r.client.HGetAll(r.ctx, settingsHash).Result()
	if err != nil && err != redis.Nil {
		return nil, errors.Wrap(err, "failed to read settings")
	}
	r.logger.Debugf("Loaded %d settings", len(settings))
	return settings, nil
}

// StartListening starts the command channel listener and the cycle input
// queue listener. Cycle inputs are handled one at a time in arrival order.
func (r *RedisClient) StartListening() error {
	r.logger.Infof("Starting Redis listeners")

	pubsub := r.client.Subscribe(r.ctx, commandChannel, settingsHash)
	r.logger.Infof("Subscribed to Redis channels: %s, %s", commandChannel, settingsHash)

	r.wg.Add(2)
	go r.redisListener(pubsub)
	go r.listCommandListener(inputList, r.handleCycleInput)

	return nil
}

func (r *RedisClient) listCommandListener(key string, handler func(string) error) {
	defer r.wg.Done()
	r.logger.Infof("Starting list listener for %s", key)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting %s listener", key)
			return
		default:
			// Short timeout so cancellation is noticed between pops.
			result, err := r.client.BRPop(r.ctx, 5*time.Second, key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if errors.Is(err, context.Canceled) {
					r.logger.Infof("Context cancelled, exiting %s listener", key)
					return
				}
				r.logger.Warnf("Error reading from %s list: %v", key, err)
				continue
			}

			if len(result) >= 2 { // BRPOP returns [key, value]
				if err := handler(result[1]); err != nil {
					r.logger.Warnf("Error handling %s entry: %v", key, err)
				}
			}
		}
	}
}

func (r *RedisClient) handleCycleInput(value string) error {
	if r.callbacks.CycleCallback == nil {
		return nil
	}
	in, err := decodeCycleInput(value)
	if err != nil {
		return err
	}
	return r.callbacks.CycleCallback(in)
}

func (r *RedisClient) redisListener(pubsub *redis.PubSub) {
	defer r.wg.Done()
	defer pubsub.Close()

	r.logger.Infof("Starting Redis message listener")
	channel := pubsub.Channel()

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting listener")
			return
		case msg, ok := <-channel:
			if !ok || msg == nil {
				if r.ctx.Err() != nil {
					return
				}
				r.logger.Fatalf("Redis connection lost, exiting to allow systemd restart")
			}

			r.logger.Debugf("Received Redis message: channel=%s payload=%s", msg.Channel, msg.Payload)

			switch msg.Channel {
			case commandChannel:
				if err := r.handleCommand(msg.Payload); err != nil {
					r.logger.Warnf("Failed to handle command %s: %v", msg.Payload, err)
				}
			case settingsHash:
				if r.callbacks.SettingsCallback != nil {
					if err := r.callbacks.SettingsCallback(msg.Payload); err != nil {
						r.logger.Warnf("Failed to handle settings update: %v", err)
					}
				}
			}
		}
	}
}

func (r *RedisClient) handleCommand(payload string) error {
	switch payload {
	case CommandReconfigure:
		if r.callbacks.ReconfigureCallback != nil {
			return r.callbacks.ReconfigureCallback()
		}
	case CommandShutdown:
		if r.callbacks.ShutdownCallback != nil {
			return r.callbacks.ShutdownCallback()
		}
	default:
		// Our own notifications come back on the same channel.
		r.logger.Debugf("Ignoring carinterface message: %s", payload)
	}
	return nil
}

// PublishState records the lifecycle state of the interface.
func (r *RedisClient) PublishState(state types.SystemState) error {
	r.logger.Infof("Publishing interface state: %s", state)
	timestamp := time.Now().Format(time.RFC3339)

	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, interfaceHash, "state", string(state))
	pipe.HSet(r.ctx, interfaceHash, "state:timestamp", timestamp)
	pipe.Publish(r.ctx, commandChannel, "state")
	_, err := pipe.Exec(r.ctx)

	if err != nil {
		r.logger.Warnf("Failed to publish interface state: %v", err)
		return err
	}
	return nil
}

// PublishConfiguration replaces the carparams hash with cfg.
func (r *RedisClient) PublishConfiguration(cfg *config.VehicleConfiguration) error {
	fields, err := configurationFields(cfg)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Del(r.ctx, paramsHash)
	pipe.HSet(r.ctx, paramsHash, fields)
	pipe.Publish(r.ctx, paramsHash, "updated")
	if _, err := pipe.Exec(r.ctx); err != nil {
		return errors.Wrap(err, "failed to publish vehicle configuration")
	}
	r.logger.Infof("Published configuration for %s (safety %s)", cfg.Model, cfg.Topology.SafetyModel)
	return nil
}

// PublishCycle writes the latest cycle to the carstate hash and appends it
// to the carstate stream.
func (r *RedisClient) PublishCycle(out engagement.Output) error {
	fields, err := cycleFields(out)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, stateHash, fields)
	pipe.XAdd(r.ctx, &redis.XAddArgs{
		Stream: stateStream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: fields,
	})
	pipe.Publish(r.ctx, stateHash, "cycle")
	if _, err := pipe.Exec(r.ctx); err != nil {
		return errors.Wrapf(err, "failed to publish cycle %d", out.Status.Cycle)
	}
	return nil
}

// Capture appends a report to the fault stream so it can serve as a
// telemetry sink.
func (r *RedisClient) Capture(ctx context.Context, rep telemetry.Report) error {
	values, err := faultFields(rep)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: faultStream,
		MaxLen: streamMaxLen,
		Values: values,
	})
	pipe.Publish(ctx, commandChannel, "fault")
	_, err = pipe.Exec(ctx)
	return errors.Wrap(err, "failed to report fault")
}

func (r *RedisClient) Close() error {
	r.logger.Infof("Closing Redis client")
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Infof("All Redis goroutines finished")
	case <-time.After(5 * time.Second):
		r.logger.Warnf("Timeout waiting for Redis goroutines to finish")
	}

	return r.client.Close()
}

func decodeCycleInput(value string) (types.CycleInput, error) {
	var in types.CycleInput
	dec := json.NewDecoder(strings.NewReader(value))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return types.CycleInput{}, errors.Wrap(err, "invalid cycle input")
	}
	return in, nil
}

func cycleFields(out engagement.Output) (map[string]interface{}, error) {
	buttons, err := json.Marshal(out.Status.ButtonEvents)
	if err != nil {
		return nil, errors.Wrap(err, "encoding button events")
	}
	var names []string
	if out.Events != nil {
		names = out.Events.Strings()
	}
	return map[string]interface{}{
		"cycle":                   strconv.FormatUint(out.Status.Cycle, 10),
		"v_ego":                   strconv.FormatFloat(out.Status.VEgo, 'f', -1, 64),
		"cruise_enabled":          strconv.FormatBool(out.Status.CruiseEnabled),
		"pcm_cruise":              strconv.FormatBool(out.Status.PCMCruise),
		"low_speed_alert":         strconv.FormatBool(out.Status.LowSpeedAlert),
		"turning_indicator_alert": strconv.FormatBool(out.Status.TurningIndicatorAlert),
		"button_events":           string(buttons),
		"events":                  strings.Join(names, ","),
	}, nil
}

func configurationFields(cfg *config.VehicleConfiguration) (map[string]interface{}, error) {
	topology, err := json.Marshal(cfg.Topology)
	if err != nil {
		return nil, errors.Wrap(err, "encoding topology")
	}
	constants, err := json.Marshal(cfg.Constants)
	if err != nil {
		return nil, errors.Wrap(err, "encoding constants")
	}
	flags, err := json.Marshal(cfg.Flags)
	if err != nil {
		return nil, errors.Wrap(err, "encoding flags")
	}
	t := cfg.Topology
	return map[string]interface{}{
		"model":               string(cfg.Model),
		"safety_model":        string(t.SafetyModel),
		"steering_bus":        t.SteeringBus.String(),
		"angle_sensor_bus":    t.AngleSensorBus.String(),
		"adaptive_cruise_bus": t.AdaptiveCruiseBus.String(),
		"radar_is_external":   strconv.FormatBool(t.RadarIsExternal),
		"pcm_cruise":          strconv.FormatBool(t.PCMCruise),
		"topology":            string(topology),
		"constants":           string(constants),
		"flags":               string(flags),
	}, nil
}

func faultFields(rep telemetry.Report) (map[string]interface{}, error) {
	values := map[string]interface{}{
		"group":       "carinterface",
		"kind":        string(rep.Kind),
		"description": rep.Message,
		"ts":          rep.Time.UnixMilli(),
	}
	if len(rep.Detail) > 0 {
		detail, err := json.Marshal(rep.Detail)
		if err != nil {
			return nil, errors.Wrap(err, "encoding fault detail")
		}
		values["info"] = string(detail)
	}
	for k, v := range rep.Tags {
		values["tag:"+k] = v
	}
	return values, nil
}
