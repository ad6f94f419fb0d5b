package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for the canvas server.
type ServerConfig struct {
	// HTTP api settings
	Endpoint string

	// Serialization of websocket frames and cached values
	SerializerType string

	// Write throttling
	RateLimitCooldown time.Duration

	// Heatmap parameters
	ChunkSize int

	// Hotspot parameters
	HotspotGridSize   int
	HotspotWindowDays int
	HotspotRefresh    time.Duration
	HotspotCacheTTL   time.Duration

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// HTTP settings
	addSection("HTTP Server")
	addField("Endpoint", c.Endpoint)
	addField("Serializer", c.SerializerType)

	// Write path
	addSection("Write Path")
	addField("Rate Limit Cooldown", c.RateLimitCooldown.String())

	// Heatmap
	addSection("Heatmap")
	addField("Chunk Size", strconv.Itoa(c.ChunkSize))

	// Hotspot
	addSection("Hotspot")
	addField("Grid Size", strconv.Itoa(c.HotspotGridSize))
	addField("Window", fmt.Sprintf("%d days", c.HotspotWindowDays))
	addField("Refresh Interval", c.HotspotRefresh.String())
	addField("Cache TTL", c.HotspotCacheTTL.String())

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
