package util

import (
	"fmt"
	"strings"
)

const ONLINE_TOPIC = "hab/online"

const ( // topic types
	COMMAND = iota
	RESULT
	STATE
	OCCUPANCY
)

type Room struct {
	Name          string            `mapstructure:"name"`
	Topic_base    string            `mapstructure:"topic_base"`
	Address       string            `mapstructure:"address"`
	Owner         string            `mapstructure:"owner"`
	Default_price uint64            `mapstructure:"default_price"`
	Genesis       map[string]uint64 `mapstructure:"genesis"`
}

func (r Room) base() string {
	return strings.TrimSuffix(r.Topic_base, "/")
}

func (r Room) CommandTopic(op string) string {
	return r.base() + "/cmd/" + op
}

func (r Room) CommandWildcard() string {
	return r.base() + "/cmd/+"
}

func (r Room) ResultTopic() string {
	return r.base() + "/result"
}

func (r Room) StateTopic() string {
	return r.base() + "/state"
}

func (r Room) OccupancyTopic() string {
	return r.base() + "/occupancy"
}

// FindOperationByTopic returns the operation named by a command topic, or ""
// when the topic is not one of ours.
func (r Room) FindOperationByTopic(topic string) string {
	prefix := r.base() + "/cmd/"
	if !strings.HasPrefix(topic, prefix) {
		return ""
	}
	op := strings.TrimPrefix(topic, prefix)
	if op == "" || strings.Contains(op, "/") {
		return ""
	}
	return op
}

func (r Room) FindTopicType(topic string) int {
	switch {
	case r.FindOperationByTopic(topic) != "":
		return COMMAND
	case topic == r.ResultTopic():
		return RESULT
	case topic == r.StateTopic():
		return STATE
	case topic == r.OccupancyTopic():
		return OCCUPANCY
	}
	return -1
}

func (r *Room) BuildModel() error {
	err := Config.UnmarshalKey("room", r)
	if err != nil {
		Logger.Error().Msgf("error unmarshaling room: %v", err)
		return fmt.Errorf("error unmarshaling room: %w", err)
	}
	if r.Topic_base == "" {
		return fmt.Errorf("room %q has no topic_base", r.Name)
	}
	return nil
}

func (r Room) SubscribeTopics() []string {
	return []string{r.CommandWildcard()}
}
