package main

import (
	"context"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"

	"github.com/elijahnyp/hotel_room/store"
	. "github.com/elijahnyp/hotel_room/util"
)

// openStore returns the configured state store, or nil when persistence is off.
func openStore(ctx context.Context) (store.Store, error) {
	var cfg store.RedisConfig
	if err := Config.UnmarshalKey("redis", &cfg); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		Logger.Info().Msg("redis persistence disabled")
		return nil, nil
	}
	st := store.NewRedisStore(store.NewRedisClient(cfg), cfg.Key)
	if err := st.Ping(ctx); err != nil {
		_ = st.Close() //nolint:errcheck // already failing
		return nil, err
	}
	Logger.Info().Msgf("persisting room state to redis at %s", cfg.Addr)
	return st, nil
}

func main() {
	LogInit("trace")
	SetupConfig()
	RegisterNewConfigListener(func() { LogInit(Config.GetString("log_level")) })
	LogInit(Config.GetString("log_level"))

	var model Room
	if err := model.BuildModel(); err != nil {
		Logger.Fatal().Msgf("Error building model: %v", err)
	}

	ctx := context.Background()
	st, err := openStore(ctx)
	if err != nil {
		Logger.Fatal().Msgf("Error opening store: %v", err)
	}
	svc, err := NewRoomService(model, st)
	if err != nil {
		Logger.Fatal().Msgf("Error deploying room: %v", err)
	}
	if err := svc.Restore(ctx); err != nil {
		Logger.Fatal().Msgf("Error restoring room: %v", err)
	}
	model = svc.Model()

	svc.OnResult(publishResults(model))
	svc.OnResult(broadcastResults(wsHub))
	subscribeCommandTopics(svc)
	RegisterMQTTConnectHook("haadvertise", func(client MQTT.Client) {
		AdvertiseHA(model, client)
		publishState(model, svc.Snapshot())
	})
	RegisterNewConfigListener(func() {
		if Config.GetBool("mqtt_enabled") {
			MqttInit()
		}
	})
	if Config.GetBool("mqtt_enabled") {
		MqttInit()
	}

	monitor := NewMonitorServer()
	monitor.AddRawHandler("/api/", NewAPIRouter(svc))
	monitor.AddHandler("/ws", ServeWebSocket(svc, wsHub))
	if err := monitor.Start(); err != nil {
		Logger.Error().Msgf("Error starting monitor server: %v", err)
	}
	RegisterNewConfigListener(func() { monitor.Restart() })

	Logger.Info().Msgf("ready: room %s at %s", model.Name, model.Address)
	go OnlinePinger()      // start the online pinger
	go HAAdvertiser(model) // start the HA advertisement pinger
	select {}              // block forever
}

// online pinger
func OnlinePinger() {
	for {
		if Client != nil && Client.IsConnected() {
			if err := Publish(ONLINE_TOPIC, false, "online"); err != nil {
				Logger.Error().Msgf("Error publishing online message: %v", err)
			}
		}
		time.Sleep(10 * time.Second)
	}
}

// HAAdvertiser - advertises Home Assistant discovery messages every 5 minutes
func HAAdvertiser(model Room) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		if Client != nil && Client.IsConnected() {
			Logger.Debug().Msg("Advertising Home Assistant discovery messages")
			AdvertiseHA(model, Client)
		}
	}
}
