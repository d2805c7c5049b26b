package navigation

import (
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the typed decode target for every key spec.md §6 lists.
// LoadConfig reads YAML in two phases — a raw map.string]any tree, then
// a typed decode — the same shape the teacher's config package tests
// exercise (see SPEC_FULL.md's AMBIENT STACK, "Configuration").
type Config struct {
	GlobalPlannerType string `mapstructure:"global_planner_type"`
	LocalPlannerType  string `mapstructure:"local_planner_type"`

	PlannerFrequency    float64 `mapstructure:"planner_frequency"`
	ControllerFrequency float64 `mapstructure:"controller_frequency"`
	ControllerPatience  float64 `mapstructure:"controller_patience"`
	PlannerPatience     float64 `mapstructure:"planner_patience"`
	MapUpdateFrequency  float64 `mapstructure:"map_update_frequency"`

	MapWidthMeters  float64 `mapstructure:"map_width_meters"`
	MapHeightMeters float64 `mapstructure:"map_height_meters"`
	Resolution      float64 `mapstructure:"resolution"`
	OriginX         float64 `mapstructure:"origin_x"`
	OriginY         float64 `mapstructure:"origin_y"`
	TrackUnknownSpace bool  `mapstructure:"track_unknown_space"`

	Footprint        string  `mapstructure:"footprint"`
	FootprintPadding float64 `mapstructure:"footprint_padding"`

	XYGoalTolerance     float64 `mapstructure:"xy_goal_tolerance"`
	YawGoalTolerance    float64 `mapstructure:"yaw_goal_tolerance"`
	OscillationDistance float64 `mapstructure:"oscillation_distance"`

	MaxVx                  float64 `mapstructure:"max_vel_x"`
	MinVx                  float64 `mapstructure:"min_vel_x"`
	MaxVTheta              float64 `mapstructure:"max_vel_theta"`
	MinVTheta              float64 `mapstructure:"min_vel_theta"`
	AccLimX                float64 `mapstructure:"acc_lim_x"`
	AccLimTheta            float64 `mapstructure:"acc_lim_theta"`
	SimTime                float64 `mapstructure:"sim_time"`
	SimGranularity         float64 `mapstructure:"sim_granularity"`
	VxSamples              int     `mapstructure:"vx_samples"`
	VThetaSamples          int     `mapstructure:"vtheta_samples"`
	PathDistanceBias       float64 `mapstructure:"path_distance_bias"`
	GoalDistanceBias       float64 `mapstructure:"goal_distance_bias"`
	OccdistScale           float64 `mapstructure:"occdist_scale"`
	InflationRadius        float64 `mapstructure:"inflation_radius"`
	InflationWeight        float64 `mapstructure:"inflation_weight"`
	InflationDecay         float64 `mapstructure:"inflation_decay"`
	ObstacleMaxRange       float64 `mapstructure:"obstacle_max_range"`
	GlobalPlannerCostScale float64 `mapstructure:"global_planner_cost_scale"`
}

// LoadConfig reads a YAML document at path in two phases: unmarshal
// into a raw map[string]any tree (gopkg.in/yaml.v3), then decode that
// tree into a typed Config (github.com/go-viper/mapstructure/v2).
// Any failure in either phase is wrapped as ErrConfig, fatal per
// spec.md §7.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrConfig, "reading config %q: %v", path, err)
	}

	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, errors.Wrapf(ErrConfig, "parsing config %q: %v", path, err)
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.Wrap(ErrFatal, err.Error())
	}
	if err := decoder.Decode(tree); err != nil {
		return nil, errors.Wrapf(ErrConfig, "decoding config %q: %v", path, err)
	}
	return &cfg, nil
}
