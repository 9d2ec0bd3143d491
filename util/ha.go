package util

import (
	"encoding/json"
	"fmt"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

type HAAvdvertisementAvailability struct {
	Topic               string `json:"topic"`                 // : "hab/online"
	PayloadAvailable    string `json:"payload_available"`     // : "online"
	PayloadNotAvailable string `json:"payload_not_available"` // : "offline"
}

type HADeviceSpec struct {
	Name        string   `json:"name"` // : "Hotel Room"
	Identifiers []string `json:"ids"`  // : ["hotel_room"]
}

type HAAdvertisement struct { //nolint:govet // struct layout optimized for JSON field order
	HAAvdvertisementAvailability []HAAvdvertisementAvailability `json:"availability"`
	Device                       HADeviceSpec                   `json:"device"`
	UniqueID                     string                         `json:"uniq_id"`
	Name                         string                         `json:"name"`
	StateTopic                   string                         `json:"state_topic"`
	ValueTemplate                string                         `json:"value_template,omitempty"`
	PayloadOn                    string                         `json:"payload_on,omitempty"`
	PayloadOff                   string                         `json:"payload_off,omitempty"`
	DeviceClass                  string                         `json:"device_class,omitempty"`
	Platform                     string                         `json:"platform"`
	Qos                          int                            `json:"qos"`
}

func (ha HAAdvertisement) ToJson() string {
	data, err := json.Marshal(ha)
	if err != nil {
		Logger.Error().Msgf("Error marshalling HAAdvertisement: %v", err)
		return ""
	}
	return string(data)
}

func haAvailability() []HAAvdvertisementAvailability {
	return []HAAvdvertisementAvailability{
		{
			Topic:               ONLINE_TOPIC,
			PayloadAvailable:    "online",
			PayloadNotAvailable: "offline",
		},
	}
}

func haDevice(room Room) HADeviceSpec {
	return HADeviceSpec{
		Name:        "hotel_room " + room.Name,
		Identifiers: []string{"hotel_room_" + room.Name},
	}
}

// ConstructHAAdvertisement describes the room's occupancy as a binary sensor:
// "true" while booked.
func ConstructHAAdvertisement(room Room) HAAdvertisement {
	return HAAdvertisement{
		Name:                         room.Name + " occupied",
		StateTopic:                   room.OccupancyTopic(),
		PayloadOn:                    "true",
		PayloadOff:                   "false",
		HAAvdvertisementAvailability: haAvailability(),
		Qos:                          0,
		UniqueID:                     "hotel_room-" + room.Name + "-occupied",
		DeviceClass:                  "occupancy",
		Platform:                     "binary_sensor",
		Device:                       haDevice(room),
	}
}

// ConstructHASensorAdvertisement exposes one numeric field of the published
// room state as a sensor.
func ConstructHASensorAdvertisement(room Room, field string) HAAdvertisement {
	return HAAdvertisement{
		Name:                         room.Name + " " + field,
		StateTopic:                   room.StateTopic(),
		ValueTemplate:                "{{ value_json." + field + " }}",
		HAAvdvertisementAvailability: haAvailability(),
		Qos:                          0,
		UniqueID:                     "hotel_room-" + room.Name + "-" + field,
		Platform:                     "sensor",
		Device:                       haDevice(room),
	}
}

func AdvertiseHA(room Room, client MQTT.Client) {
	publish := func(topic string, ha HAAdvertisement) {
		if token := client.Publish(topic, 0, false, ha.ToJson()); token.Wait() && token.Error() != nil {
			Logger.Error().Msgf("Error Publishing: %v", fmt.Errorf("%v", token.Error()))
		}
	}
	publish("homeassistant/binary_sensor/"+room.Name+"/occupancy/config", ConstructHAAdvertisement(room))
	for _, field := range []string{"remaining_days", "price", "balance"} {
		publish("homeassistant/sensor/"+room.Name+"/"+field+"/config", ConstructHASensorAdvertisement(room, field))
	}
}
