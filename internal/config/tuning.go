package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nightpath/internal/security"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters,
// loaded from JSON at startup.
type TuningConfig struct {
	// Sensor fusion params (C4)
	FusionCameraWeight      *float64 `json:"fusion_camera_weight,omitempty"`
	FusionLightSensorWeight *float64 `json:"fusion_light_sensor_weight,omitempty"`
	FusionShadowWeight      *float64 `json:"fusion_shadow_weight,omitempty"`
	FusionMaxLux            *float64 `json:"fusion_max_lux,omitempty"`
	FusionIntervalMillis    *int     `json:"fusion_interval_millis,omitempty"`

	// CV pipeline params (C1, C2, C5, C7)
	TargetFPS             *float64 `json:"target_fps,omitempty"`
	MaxQueueDepth         *int     `json:"max_queue_depth,omitempty"`
	MaxMemoryMB           *int     `json:"max_memory_mb,omitempty"`
	ConsecutiveErrorLimit *int     `json:"consecutive_error_limit,omitempty"`
	EnableHazardDetection *bool    `json:"enable_hazard_detection,omitempty"`
	EnableShadowDetection *bool    `json:"enable_shadow_detection,omitempty"`
	EnableContrastMap     *bool    `json:"enable_contrast_map,omitempty"`

	// Navigation graph params (C8)
	MaxGraphNodes *int `json:"max_graph_nodes,omitempty"`

	// Pathfinding params (C9, C10)
	RouteTimeout     *string  `json:"route_timeout,omitempty"` // duration string like "2s"
	DistanceWeight   *float64 `json:"distance_weight,omitempty"`
	VisibilityWeight *float64 `json:"visibility_weight,omitempty"`
	SafetyWeight     *float64 `json:"safety_weight,omitempty"`

	// Rerouting params (C11)
	RerouteDebounce          *string  `json:"reroute_debounce,omitempty"`           // duration string like "5s"
	RerouteCooldown          *string  `json:"reroute_cooldown,omitempty"`           // duration string like "30s"
	RerouteCostDeltaFraction *float64 `json:"reroute_cost_delta_fraction,omitempty"`

	// Offline routing params (C12)
	OfflineRegionPadMeters *float64 `json:"offline_region_pad_meters,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file supplied by the
// caller (e.g. the nightpathd -config flag). The path is validated to
// live within the process's temp or working directory via
// security.ValidateExportPath before anything is read, then further
// checked for a .json extension and the max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	if err := security.ValidateExportPath(path); err != nil {
		return nil, fmt.Errorf("config file path rejected: %w", err)
	}
	return loadTuningConfigFile(path)
}

// loadTuningConfigFile does the actual parse/validate work, without the
// caller-path security gate. LoadTuningConfig is the gated entry point
// for externally supplied paths; MustLoadDefaultConfig calls this
// directly since its candidate list is fixed at compile time and
// legitimately walks above the working directory to find the repo root
// from nested package test directories.
func loadTuningConfigFile(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,          // from internal/<pkg>/ or cmd/<name>/
		"../../../" + DefaultConfigPath,       // from internal/<pkg>/<sub>/
		"../../../../" + DefaultConfigPath,    // deeper packages
		"../../../../../" + DefaultConfigPath, // even deeper
	}
	for _, path := range candidates {
		if cfg, err := loadTuningConfigFile(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.FusionCameraWeight != nil && *c.FusionCameraWeight < 0 {
		return fmt.Errorf("fusion_camera_weight must be non-negative, got %f", *c.FusionCameraWeight)
	}
	if c.FusionLightSensorWeight != nil && *c.FusionLightSensorWeight < 0 {
		return fmt.Errorf("fusion_light_sensor_weight must be non-negative, got %f", *c.FusionLightSensorWeight)
	}
	if c.FusionShadowWeight != nil && *c.FusionShadowWeight < 0 {
		return fmt.Errorf("fusion_shadow_weight must be non-negative, got %f", *c.FusionShadowWeight)
	}
	if c.FusionMaxLux != nil && *c.FusionMaxLux <= 0 {
		return fmt.Errorf("fusion_max_lux must be positive, got %f", *c.FusionMaxLux)
	}
	if c.TargetFPS != nil && *c.TargetFPS <= 0 {
		return fmt.Errorf("target_fps must be positive, got %f", *c.TargetFPS)
	}
	if c.MaxQueueDepth != nil && *c.MaxQueueDepth < 1 {
		return fmt.Errorf("max_queue_depth must be at least 1, got %d", *c.MaxQueueDepth)
	}
	if c.MaxGraphNodes != nil && *c.MaxGraphNodes < 1 {
		return fmt.Errorf("max_graph_nodes must be at least 1, got %d", *c.MaxGraphNodes)
	}
	if c.RouteTimeout != nil && *c.RouteTimeout != "" {
		if _, err := time.ParseDuration(*c.RouteTimeout); err != nil {
			return fmt.Errorf("invalid route_timeout %q: %w", *c.RouteTimeout, err)
		}
	}
	if c.RerouteDebounce != nil && *c.RerouteDebounce != "" {
		if _, err := time.ParseDuration(*c.RerouteDebounce); err != nil {
			return fmt.Errorf("invalid reroute_debounce %q: %w", *c.RerouteDebounce, err)
		}
	}
	if c.RerouteCooldown != nil && *c.RerouteCooldown != "" {
		if _, err := time.ParseDuration(*c.RerouteCooldown); err != nil {
			return fmt.Errorf("invalid reroute_cooldown %q: %w", *c.RerouteCooldown, err)
		}
	}
	if c.DistanceWeight != nil && *c.DistanceWeight < 0 {
		return fmt.Errorf("distance_weight must be non-negative, got %f", *c.DistanceWeight)
	}
	if c.VisibilityWeight != nil && *c.VisibilityWeight < 0 {
		return fmt.Errorf("visibility_weight must be non-negative, got %f", *c.VisibilityWeight)
	}
	if c.SafetyWeight != nil && *c.SafetyWeight < 0 {
		return fmt.Errorf("safety_weight must be non-negative, got %f", *c.SafetyWeight)
	}
	if c.OfflineRegionPadMeters != nil && *c.OfflineRegionPadMeters < 0 {
		return fmt.Errorf("offline_region_pad_meters must be non-negative, got %f", *c.OfflineRegionPadMeters)
	}
	return nil
}

// GetFusionCameraWeight returns the fusion_camera_weight value or the default.
func (c *TuningConfig) GetFusionCameraWeight() float64 {
	if c.FusionCameraWeight == nil {
		return 1.0 / 3
	}
	return *c.FusionCameraWeight
}

// GetFusionLightSensorWeight returns the fusion_light_sensor_weight value or the default.
func (c *TuningConfig) GetFusionLightSensorWeight() float64 {
	if c.FusionLightSensorWeight == nil {
		return 1.0 / 3
	}
	return *c.FusionLightSensorWeight
}

// GetFusionShadowWeight returns the fusion_shadow_weight value or the default.
func (c *TuningConfig) GetFusionShadowWeight() float64 {
	if c.FusionShadowWeight == nil {
		return 1.0 / 3
	}
	return *c.FusionShadowWeight
}

// GetFusionMaxLux returns the fusion_max_lux value or the default.
func (c *TuningConfig) GetFusionMaxLux() float64 {
	if c.FusionMaxLux == nil {
		return 300.0
	}
	return *c.FusionMaxLux
}

// GetFusionInterval returns the fusion update interval as a time.Duration.
func (c *TuningConfig) GetFusionInterval() time.Duration {
	if c.FusionIntervalMillis == nil {
		return 200 * time.Millisecond
	}
	return time.Duration(*c.FusionIntervalMillis) * time.Millisecond
}

// GetTargetFPS returns the target_fps value or the default.
func (c *TuningConfig) GetTargetFPS() float64 {
	if c.TargetFPS == nil {
		return 5.0
	}
	return *c.TargetFPS
}

// GetMaxQueueDepth returns the max_queue_depth value or the default.
func (c *TuningConfig) GetMaxQueueDepth() int {
	if c.MaxQueueDepth == nil {
		return 4
	}
	return *c.MaxQueueDepth
}

// GetMaxMemoryMB returns the max_memory_mb value or the default.
func (c *TuningConfig) GetMaxMemoryMB() int {
	if c.MaxMemoryMB == nil {
		return 256
	}
	return *c.MaxMemoryMB
}

// GetConsecutiveErrorLimit returns the consecutive_error_limit value or the default.
func (c *TuningConfig) GetConsecutiveErrorLimit() int {
	if c.ConsecutiveErrorLimit == nil {
		return 5
	}
	return *c.ConsecutiveErrorLimit
}

// GetEnableHazardDetection returns the enable_hazard_detection value or the default.
func (c *TuningConfig) GetEnableHazardDetection() bool {
	if c.EnableHazardDetection == nil {
		return true
	}
	return *c.EnableHazardDetection
}

// GetEnableShadowDetection returns the enable_shadow_detection value or the default.
func (c *TuningConfig) GetEnableShadowDetection() bool {
	if c.EnableShadowDetection == nil {
		return true
	}
	return *c.EnableShadowDetection
}

// GetEnableContrastMap returns the enable_contrast_map value or the default.
func (c *TuningConfig) GetEnableContrastMap() bool {
	if c.EnableContrastMap == nil {
		return true
	}
	return *c.EnableContrastMap
}

// GetMaxGraphNodes returns the max_graph_nodes value or the default.
func (c *TuningConfig) GetMaxGraphNodes() int {
	if c.MaxGraphNodes == nil {
		return 50000
	}
	return *c.MaxGraphNodes
}

// GetRouteTimeout parses and returns the RouteTimeout as a time.Duration.
func (c *TuningConfig) GetRouteTimeout() time.Duration {
	if c.RouteTimeout == nil || *c.RouteTimeout == "" {
		return 2 * time.Second
	}
	d, err := time.ParseDuration(*c.RouteTimeout)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GetDistanceWeight returns the distance_weight value or the default.
func (c *TuningConfig) GetDistanceWeight() float64 {
	if c.DistanceWeight == nil {
		return 1.0
	}
	return *c.DistanceWeight
}

// GetVisibilityWeight returns the visibility_weight value or the default.
func (c *TuningConfig) GetVisibilityWeight() float64 {
	if c.VisibilityWeight == nil {
		return 0.5
	}
	return *c.VisibilityWeight
}

// GetSafetyWeight returns the safety_weight value or the default.
func (c *TuningConfig) GetSafetyWeight() float64 {
	if c.SafetyWeight == nil {
		return 0.5
	}
	return *c.SafetyWeight
}

// GetRerouteDebounce parses and returns the RerouteDebounce as a time.Duration.
func (c *TuningConfig) GetRerouteDebounce() time.Duration {
	if c.RerouteDebounce == nil || *c.RerouteDebounce == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(*c.RerouteDebounce)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetRerouteCooldown parses and returns the RerouteCooldown as a time.Duration.
func (c *TuningConfig) GetRerouteCooldown() time.Duration {
	if c.RerouteCooldown == nil || *c.RerouteCooldown == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(*c.RerouteCooldown)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetRerouteCostDeltaFraction returns the reroute_cost_delta_fraction value or the default.
func (c *TuningConfig) GetRerouteCostDeltaFraction() float64 {
	if c.RerouteCostDeltaFraction == nil {
		return 0.15
	}
	return *c.RerouteCostDeltaFraction
}

// GetOfflineRegionPadMeters returns the offline_region_pad_meters value or the default.
func (c *TuningConfig) GetOfflineRegionPadMeters() float64 {
	if c.OfflineRegionPadMeters == nil {
		return 250.0
	}
	return *c.OfflineRegionPadMeters
}
