package pickplace

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/generic"
)

var PickPlaceServiceModel = resource.NewModel("devrel", "so101", "pick-place")

func init() {
	resource.RegisterService(
		generic.API,
		PickPlaceServiceModel,
		resource.Registration[resource.Resource, *Config]{
			Constructor: newPickPlaceService,
		})
}

// pickPlaceService exposes the orchestration engine as a Viam generic
// service. The embedded simulated world stands in for the host scene; a
// driver exercises the engine through DoCommand verbs:
//
//	{"command": "add_object", "id": "orange1", "x": .., "y": .., "z": ..}
//	{"command": "start", "target": "orange1"}
//	{"command": "step", "frames": 60}
//	{"command": "status"}
//	{"command": "ledger"}
type pickPlaceService struct {
	resource.Named
	resource.AlwaysRebuild
	resource.TriviallyCloseable

	logger  logging.Logger
	world   *SimWorld
	machine *StateMachine
}

func newPickPlaceService(
	ctx context.Context,
	deps resource.Dependencies,
	conf resource.Config,
	logger logging.Logger,
) (resource.Resource, error) {
	cfg, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return nil, err
	}
	if _, _, err := cfg.Validate(""); err != nil {
		return nil, err
	}
	cfg.Logger = logger

	world := NewSimWorld(cfg.HomePosition, 0)
	machine := NewStateMachine(cfg, world, world, world, world, nil, NewPlacementLedger(), logger)

	return &pickPlaceService{
		Named:   conf.ResourceName().AsNamed(),
		logger:  logger,
		world:   world,
		machine: machine,
	}, nil
}

func (s *pickPlaceService) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	switch cmd["command"] {
	case "add_object":
		id, ok := cmd["id"].(string)
		if !ok || id == "" {
			return nil, errors.New("add_object requires an 'id' string")
		}
		x, _ := cmd["x"].(float64)
		y, _ := cmd["y"].(float64)
		z, _ := cmd["z"].(float64)
		s.world.AddObject(id, r3.Vector{X: x, Y: y, Z: z})
		return map[string]interface{}{"added": id}, nil

	case "start":
		target, ok := cmd["target"].(string)
		if !ok || target == "" {
			return nil, errors.New("start requires a 'target' string")
		}
		if err := s.machine.Start(target); err != nil {
			return nil, err
		}
		return map[string]interface{}{"phase": s.machine.CurrentPhase().String()}, nil

	case "step":
		frames := 1
		if f, ok := cmd["frames"].(float64); ok && f > 0 {
			frames = int(f)
		}
		var last StepEvent
		for i := 0; i < frames; i++ {
			s.world.StepFrame()
			ev, err := s.machine.Step()
			if err != nil {
				return nil, err
			}
			last = ev
			if ev.Phase.Terminal() {
				break
			}
		}
		return map[string]interface{}{
			"frame":   last.Frame,
			"phase":   last.Phase.String(),
			"outcome": last.Outcome.String(),
			"reason":  last.Reason.String(),
		}, nil

	case "status":
		outcome, reason := s.machine.LastOutcome()
		return map[string]interface{}{
			"phase":       s.machine.CurrentPhase().String(),
			"busy":        s.machine.Busy(),
			"frame":       s.machine.Frame(),
			"outcome":     outcome.String(),
			"reason":      reason.String(),
			"scene_reset": s.machine.ConsumeSceneResetFlag(),
		}, nil

	case "ledger":
		records := s.machine.Ledger().Records()
		entries := make([]interface{}, 0, len(records))
		for _, rec := range records {
			entries = append(entries, map[string]interface{}{
				"object_id": rec.ObjectID,
				"x":         rec.Position.X,
				"y":         rec.Position.Y,
				"z":         rec.Position.Z,
				"success":   rec.Success,
			})
		}
		return map[string]interface{}{"entries": entries}, nil

	default:
		return nil, errors.Errorf("unknown command: %v", cmd["command"])
	}
}
