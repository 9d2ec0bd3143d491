package main

import (
	"context"
	"encoding/json"
	"strconv"

	MQTT "github.com/eclipse/paho.mqtt.golang"

	"github.com/elijahnyp/hotel_room/state"
	. "github.com/elijahnyp/hotel_room/util"
)

/* ***************************************
MQTT command transport
*/

func commandReceiver(svc *RoomService) MQTT.MessageHandler {
	model := svc.Model()
	return func(client MQTT.Client, message MQTT.Message) {
		Logger.Info().Msgf("Message Received on topic %s", message.Topic())
		if model.FindTopicType(message.Topic()) != COMMAND {
			Logger.Debug().Msgf("topic %s is not a command topic for %s", message.Topic(), model.Name)
			return
		}
		op := model.FindOperationByTopic(message.Topic())

		var cmd Command
		if err := json.Unmarshal(message.Payload(), &cmd); err != nil {
			Logger.Warn().Msgf("malformed %s command: %v", op, err)
			publishJSON(model.ResultTopic(), false, CallResult{
				Operation: op,
				Error:     "malformed command: " + err.Error(),
				Kind:      state.KindRejected.String(),
				Room:      svc.Snapshot(),
			})
			return
		}

		// the result itself goes out through publishResults
		_, _ = svc.Dispatch(context.Background(), op, cmd) //nolint:errcheck // reported on the result topic
	}
}

func publishJSON(topic string, retained bool, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		Logger.Error().Msgf("Error marshalling message for %s: %v", topic, err)
		return
	}
	if err := Publish(topic, retained, data); err != nil {
		Logger.Error().Msgf("Error publishing to %s: %v", topic, err)
	}
}

// publishResults reports every call on the result topic and, after a
// successful call, the new room state and occupancy.
func publishResults(model Room) func(CallResult) {
	return func(res CallResult) {
		publishJSON(model.ResultTopic(), false, res)
		if !res.Ok {
			return
		}
		publishState(model, res.Room)
	}
}

func publishState(model Room, snap state.Snapshot) {
	publishJSON(model.StateTopic(), true, snap)
	if err := Publish(model.OccupancyTopic(), true, strconv.FormatBool(!snap.Available)); err != nil {
		Logger.Error().Msgf("Error publishing occupancy: %v", err)
	}
}

func subscribeCommandTopics(svc *RoomService) {
	handler := commandReceiver(svc)
	for _, topic := range svc.Model().SubscribeTopics() {
		RegisterMQTTSubscription(topic, handler)
	}
}
