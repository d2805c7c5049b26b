// Command navserver is the navigation core's process entrypoint:
// load configuration, fetch the initial static map, build the layered
// costmap and planners, and run the coordinator until shutdown, per
// spec.md §6's "process entrypoint, exit codes".
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"go.viam.com/navcore/costmap"
	"go.viam.com/navcore/navigation"
	"go.viam.com/navcore/navigation/fakebus"
	"go.viam.com/navcore/planner/global"
	"go.viam.com/navcore/planner/local"
	"go.viam.com/navcore/planner/trajectory"
	"go.viam.com/navcore/spatialmath"
)

// exitConfigError, exitMapUnavailable, and exitFatal are the
// non-normal exit codes: exitConfigError and exitMapUnavailable mean
// parameter parsing or the map fetch failed; exitFatal covers costmap
// construction, coordinator start, and errors reported at shutdown.
const (
	exitOK = iota
	exitConfigError
	exitMapUnavailable
	exitFatal
)

func main() {
	configPath := flag.String("config", "navcore.yaml", "path to the navigation core's YAML configuration")
	flag.Parse()

	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync() //nolint:errcheck

	os.Exit(run(*configPath, logger))
}

func run(configPath string, logger *zap.SugaredLogger) int {
	cfg, err := navigation.LoadConfig(configPath)
	if err != nil {
		logger.Errorw("config load failed", "error", err)
		return exitConfigError
	}

	sizeX := int(cfg.MapWidthMeters / cfg.Resolution)
	sizeY := int(cfg.MapHeightMeters / cfg.Resolution)
	layered, err := costmap.NewLayeredCostmap(sizeX, sizeY, cfg.Resolution, cfg.OriginX, cfg.OriginY, cfg.TrackUnknownSpace, logger)
	if err != nil {
		logger.Errorw("layered costmap construction failed", "error", err)
		return exitFatal
	}

	footprint, err := spatialmath.MakeFootprintFromString(cfg.Footprint)
	if err != nil {
		logger.Errorw("footprint parse failed", "error", err)
		return exitConfigError
	}
	if cfg.FootprintPadding > 0 {
		footprint = spatialmath.PadFootprint(footprint, cfg.FootprintPadding)
	}
	layered.SetFootprint(footprint)

	staticLayer := costmap.NewStaticLayer("static")
	obstacleLayer := costmap.NewObstacleLayer("obstacle", cfg.ObstacleMaxRange)
	inflationLayer := costmap.NewInflationLayer("inflation", cfg.InflationRadius, cfg.InflationWeight, cfg.InflationDecay)
	layered.AddLayer(staticLayer)
	layered.AddLayer(obstacleLayer)
	layered.AddLayer(inflationLayer)

	// The map/goal/velocity/transform collaborators are the external
	// bus integration spec.md §1 scopes out of the navigation core;
	// this entrypoint wires the in-memory fakes so the binary is
	// runnable standalone. A deployment substitutes its own
	// bus.MapService/GoalSubscriber/VelocityPublisher/*TF
	// implementations here.
	mapService := fakebus.NewMapService(nil, 0)
	staticMap, err := fetchMapWithRetry(context.Background(), mapService, 10)
	if err != nil {
		logger.Errorw("map fetch failed after retries", "error", err)
		return exitMapUnavailable
	}
	if staticMap != nil {
		staticLayer.ReceiveMap(staticMap)
	}

	globalPlanner := global.NewPlanner(cfg.GlobalPlannerCostScale, costmap.InscribedInflated)
	localPlanner := local.NewPlanner(local.Config{
		XYGoalTolerance:      cfg.XYGoalTolerance,
		YawGoalTolerance:     cfg.YawGoalTolerance,
		LatchXYGoalTolerance: true,
		RotStoppedVelocity:   0.05,
		TransStoppedVelocity: 0.05,
		AccLimX:              cfg.AccLimX,
		AccLimTheta:          cfg.AccLimTheta,
		MinInPlaceVelTheta:   0.1,
		SimPeriod:            1.0 / cfg.ControllerFrequency,
		PruneLookaheadMargin: 0.5,
		PathDistanceWallCost: costmap.InscribedInflated,
		Trajectory: trajectory.Config{
			Limits: trajectory.Limits{
				MinVx: cfg.MinVx, MaxVx: cfg.MaxVx,
				MinVTheta: cfg.MinVTheta, MaxVTheta: cfg.MaxVTheta,
				AccLimX: cfg.AccLimX, AccLimTheta: cfg.AccLimTheta,
			},
			Weights: trajectory.Weights{
				PathDistanceBias: cfg.PathDistanceBias,
				GoalDistanceBias: cfg.GoalDistanceBias,
				OccdistScale:     cfg.OccdistScale,
			},
			SimTime:         cfg.SimTime,
			SimGranularity:  cfg.SimGranularity,
			SimPeriod:       1.0 / cfg.ControllerFrequency,
			VxSamples:       cfg.VxSamples,
			VThetaSamples:   cfg.VThetaSamples,
			Footprint:       footprint,
			LethalThreshold: costmap.InscribedInflated,
		},
	})

	goalSub := &fakebus.GoalSubscriber{}
	velPub := &fakebus.VelocityPublisher{}
	tf := fakebus.NewStaticTF()
	goalExecutor := fakebus.NewGoalExecutor()

	coordinator := navigation.New(
		logger, clock.New(), layered, globalPlanner, localPlanner,
		goalSub, velPub, tf, tf, goalExecutor,
		navigation.CoordinatorConfig{
			PlannerFrequency:       cfg.PlannerFrequency,
			ControllerFrequency:    cfg.ControllerFrequency,
			MapUpdateFrequency:     cfg.MapUpdateFrequency,
			ControllerPatience:     time.Duration(cfg.ControllerPatience * float64(time.Second)),
			PlannerPatience:        int(cfg.PlannerPatience),
			OscillationDistance:    cfg.OscillationDistance,
			GlobalPlannerCostScale: cfg.GlobalPlannerCostScale,
			LethalThreshold:        costmap.InscribedInflated,
		},
	)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := coordinator.Start(runCtx); err != nil {
		logger.Errorw("coordinator start failed", "error", err)
		return exitFatal
	}

	<-runCtx.Done()
	logger.Info("shutting down")
	if err := coordinator.Stop(); err != nil {
		logger.Errorw("coordinator shutdown reported errors", "error", err)
		return exitFatal
	}
	return exitOK
}

func fetchMapWithRetry(ctx context.Context, svc interface {
	FetchMap(ctx context.Context) (*costmap.OccupancyGrid, error)
}, attempts int) (*costmap.OccupancyGrid, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		grid, err := svc.FetchMap(ctx)
		if err == nil {
			return grid, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

