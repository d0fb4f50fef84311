package pickplace

import (
	"context"
	"strings"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/pkg/errors"
	"go.bug.st/serial/enumerator"
	"go.viam.com/rdk/logging"
)

// The SO-101 gripper is servo 6 on the shared Feetech bus.
const (
	gripperServoID      = 6
	gripperBaudrate     = 1000000
	gripperOpenPercent  = 95.0
	gripperClosePercent = 0.0
)

// FeetechGripper maps the engine's gripper intent onto a real SO-101 gripper
// servo, for running the engine against hardware instead of a simulator.
// SetTarget is fire-and-forget by contract, so bus errors are logged rather
// than returned; the detectors judge the physical result either way.
type FeetechGripper struct {
	bus    *feetech.Bus
	servo  *feetech.Servo
	logger logging.Logger

	closedPosition float64 // engine-side extremum from Config
}

// NewFeetechGripper opens the servo bus on the given port and prepares servo
// 6 for position commands.
func NewFeetechGripper(port string, closedPosition float64, logger logging.Logger) (*FeetechGripper, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: gripperBaudrate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  500 * time.Millisecond,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open servo bus on %s", port)
	}

	servo := feetech.NewServo(bus, gripperServoID, &feetech.ModelSTS3215)
	ctx := context.Background()
	if _, err := servo.Ping(ctx); err != nil {
		bus.Close()
		return nil, errors.Wrapf(err, "gripper servo %d did not respond on %s", gripperServoID, port)
	}
	if err := servo.Enable(ctx); err != nil {
		bus.Close()
		return nil, errors.Wrap(err, "failed to enable gripper torque")
	}

	logger.Infof("Feetech gripper ready on %s (servo %d)", port, gripperServoID)
	return &FeetechGripper{
		bus:            bus,
		servo:          servo,
		logger:         logger,
		closedPosition: closedPosition,
	}, nil
}

// SetTarget implements GripperActuator: 0 = fully open, the configured closed
// position = fully closed. Intermediate values interpolate the servo range.
func (g *FeetechGripper) SetTarget(position float64) {
	fraction := 0.0
	if g.closedPosition != 0 {
		fraction = position / g.closedPosition
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	percent := gripperOpenPercent + fraction*(gripperClosePercent-gripperOpenPercent)
	raw := percent / 100.0 * 4095.0

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := g.servo.SetPosition(ctx, int(raw)); err != nil {
		g.logger.Warnf("failed to command gripper servo: %v", err)
	}
}

// Close disables torque and releases the bus.
func (g *FeetechGripper) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := g.servo.Disable(ctx); err != nil {
		g.logger.Warnf("failed to disable gripper torque: %v", err)
	}
	return g.bus.Close()
}

// DiscoverGripperPorts enumerates serial ports and filters to plausible
// SO-101 connections (USB serial adapters on every platform).
func DiscoverGripperPorts() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate serial ports")
	}

	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.Name)
	}
	return filterCandidatePorts(names), nil
}

// filterCandidatePorts keeps only ports that look like USB serial devices.
func filterCandidatePorts(ports []string) []string {
	candidates := []string{}
	for _, port := range ports {
		switch {
		case strings.HasPrefix(port, "/dev/ttyUSB"),
			strings.HasPrefix(port, "/dev/ttyACM"),
			strings.HasPrefix(port, "/dev/tty.usbmodem"),
			strings.HasPrefix(port, "/dev/tty.usbserial"),
			strings.HasPrefix(port, "COM"):
			candidates = append(candidates, port)
		}
	}
	return candidates
}
