package util

import (
	"os"
	"testing"
)

func TestGetRandStringVariousLengths(t *testing.T) {
	tests := []struct {
		name   string
		length int
	}{
		{"Zero length", 0},
		{"Single character", 1},
		{"Small string", 5},
		{"Medium string", 10},
		{"Large string", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetRandString(tt.length)

			if len(result) != tt.length {
				t.Errorf("GetRandString(%d) = length %d, expected %d", tt.length, len(result), tt.length)
			}

			// Verify all characters are letters
			for i, char := range result {
				if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z')) {
					t.Errorf("GetRandString(%d) contains non-letter at position %d: %c", tt.length, i, char)
				}
			}
		})
	}
}

func TestGetRandStringRandomness(t *testing.T) {
	// Generate multiple strings and ensure they're different
	const length = 10
	const iterations = 100

	strings := make(map[string]bool)

	for i := 0; i < iterations; i++ {
		result := GetRandString(length)
		if strings[result] {
			t.Errorf("GetRandString generated duplicate string: %s", result)
		}
		strings[result] = true
	}

	// Should have generated unique strings (very high probability)
	if len(strings) < iterations {
		t.Errorf("GetRandString generated %d unique strings out of %d iterations", len(strings), iterations)
	}
}

func TestRegisterNewConfigListener(t *testing.T) {
	// Clear existing listeners
	config_listeners = []func(){}

	// Test adding listeners
	called1 := false
	called2 := false

	listener1 := func() { called1 = true }
	listener2 := func() { called2 = true }

	RegisterNewConfigListener(listener1)
	RegisterNewConfigListener(listener2)

	if len(config_listeners) != 2 {
		t.Errorf("Expected 2 listeners, got %d", len(config_listeners))
	}

	// Test that duplicate listeners are not added
	RegisterNewConfigListener(listener1) // Should not add duplicate

	if len(config_listeners) != 2 {
		t.Errorf("Expected 2 listeners after duplicate addition, got %d", len(config_listeners))
	}

	// Test OnNewConfig calls all listeners
	OnNewConfig()

	if !called1 || !called2 {
		t.Error("OnNewConfig should call all registered listeners")
	}
}

func TestOnNewConfig(t *testing.T) {
	// Clear existing listeners
	config_listeners = []func(){}

	callCount := 0
	listener := func() { callCount++ }

	RegisterNewConfigListener(listener)
	RegisterNewConfigListener(listener)               // Should be deduplicated
	RegisterNewConfigListener(func() { callCount++ }) // Different function

	OnNewConfig()

	// Should have called 2 unique listeners
	if callCount != 2 {
		t.Errorf("Expected 2 listener calls, got %d", callCount)
	}
}

func TestSetupConfigDefaults(t *testing.T) {
	SetupConfig()

	if Config.GetString("broker_uri") == "" {
		t.Error("broker_uri default should not be empty")
	}
	if Config.GetString("room.topic_base") != "hotel/room" {
		t.Errorf("room.topic_base = %s, expected hotel/room", Config.GetString("room.topic_base"))
	}
	if Config.GetUint64("room.default_price") != 100_000_000_000_000_000 {
		t.Errorf("room.default_price = %d, expected 0.1 ether in wei", Config.GetUint64("room.default_price"))
	}
	if Config.GetInt("details_port") <= 0 {
		t.Errorf("details_port default should be positive, got %d", Config.GetInt("details_port"))
	}
	if Config.GetBool("redis.enabled") {
		t.Error("redis should be disabled by default")
	}
}

func TestSetupConfigEnvironmentVariables(t *testing.T) {
	t.Setenv("HOTEL_ROOM_BROKER_URI", "tcp://test-env-broker:1883")
	t.Setenv("HOTEL_ROOM_ROOM_NAME", "suite_12")

	SetupConfig()

	if value := Config.GetString("broker_uri"); value != "tcp://test-env-broker:1883" {
		t.Errorf("broker_uri = %s, expected the environment value", value)
	}
	if value := Config.GetString("room.name"); value != "suite_12" {
		t.Errorf("room.name = %s, expected suite_12", value)
	}
}

func TestSetupConfigFileSearch(t *testing.T) {
	tempConfigContent := `{
		"test_key": "test_value",
		"room": {"name": "attic", "default_price": 250}
	}`

	expectedName := CONFIG_NAME + ".json"
	if err := os.WriteFile(expectedName, []byte(tempConfigContent), 0o600); err != nil {
		t.Fatalf("Failed to write temp config file: %v", err)
	}
	defer func() { _ = os.Remove(expectedName) }() //nolint:errcheck // test cleanup

	SetupConfig()

	if testValue := Config.GetString("test_key"); testValue != "test_value" {
		t.Errorf("Config file test_key = %s, expected test_value", testValue)
	}
	if Config.GetString("room.name") != "attic" {
		t.Errorf("room.name = %s, expected attic", Config.GetString("room.name"))
	}
	if Config.GetUint64("room.default_price") != 250 {
		t.Errorf("room.default_price = %d, expected 250", Config.GetUint64("room.default_price"))
	}
}

func TestConfigurationPaths(t *testing.T) {
	SetupConfig()

	if Config.GetString("non_existent_key") != "" {
		t.Error("Non-existent string key should return empty string")
	}
	if Config.GetInt("non_existent_int_key") != 0 {
		t.Error("Non-existent int key should return 0")
	}
	if Config.GetBool("non_existent_bool_key") {
		t.Error("Non-existent bool key should return false")
	}
}
