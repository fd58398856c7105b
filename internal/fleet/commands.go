package fleet

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/garage/internal/garage"
	"github.com/ukydev/garage/internal/notify"
)

// Command names a vehicle operation that can be issued remotely.
type Command string

const (
	CmdTurnOn     Command = "turn_on"
	CmdTurnOff    Command = "turn_off"
	CmdAccelerate Command = "accelerate"
	CmdBrake      Command = "brake"
	CmdHonk       Command = "honk"
	CmdTurboOn    Command = "turbo_on"
	CmdTurboOff   Command = "turbo_off"
	CmdLoad       Command = "load"
	CmdUnload     Command = "unload"
)

// Commands lists every command in a stable order.
var Commands = []Command{
	CmdTurnOn, CmdTurnOff, CmdAccelerate, CmdBrake, CmdHonk,
	CmdTurboOn, CmdTurboOff, CmdLoad, CmdUnload,
}

// Supports reports whether vehicles of the given kind accept c.
func (c Command) Supports(kind garage.Kind) bool {
	switch c {
	case CmdTurnOn, CmdTurnOff, CmdAccelerate, CmdBrake, CmdHonk:
		return true
	case CmdTurboOn, CmdTurboOff:
		return kind == garage.KindSportsCar
	case CmdLoad, CmdUnload:
		return kind == garage.KindTruck
	default:
		return false
	}
}

// Result is the outcome of a command. A rejected command is not an error:
// Success is false and Notices explains why.
type Result struct {
	Command Command         `json:"command"`
	Success bool            `json:"success"`
	Notices []notify.Notice `json:"notices"`
	Vehicle garage.Summary  `json:"vehicle"`
}

// Exec runs a command on one vehicle. arg is the amount for accelerate and
// brake (nil uses the vehicle default) and the weight for load and unload.
func (f *Fleet) Exec(id string, cmd Command, arg *float64) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := f.find(id)
	if v == nil {
		return Result{}, ErrVehicleNotFound
	}
	if !cmd.Supports(v.Kind()) {
		return Result{}, fmt.Errorf("%w: %q for %s", ErrUnsupportedCommand, cmd, v.Kind())
	}

	f.captured = nil
	h := f.hooksFor(v)
	ok := run(v, h, cmd, arg)
	res := Result{
		Command: cmd,
		Success: ok,
		Notices: f.captured,
		Vehicle: v.Describe(),
	}
	f.captured = nil
	if res.Notices == nil {
		res.Notices = []notify.Notice{}
	}

	log.WithFields(log.Fields{
		"vehicle_id": id,
		"command":    cmd,
		"success":    ok,
	}).Debug("Command executed")
	return res, nil
}

func run(v *garage.Vehicle, h garage.Hooks, cmd Command, arg *float64) bool {
	switch cmd {
	case CmdTurnOn:
		return v.TurnOn(h)
	case CmdTurnOff:
		return v.TurnOff(h)
	case CmdAccelerate:
		if arg == nil {
			return v.Accelerate(h)
		}
		return v.AccelerateBy(h, *arg)
	case CmdBrake:
		if arg == nil {
			return v.Brake(h)
		}
		return v.BrakeBy(h, *arg)
	case CmdHonk:
		return v.Honk(h)
	case CmdTurboOn:
		return v.EngageTurbo(h)
	case CmdTurboOff:
		return v.DisengageTurbo(h)
	case CmdLoad:
		return v.Load(h, weight(arg))
	case CmdUnload:
		return v.Unload(h, weight(arg))
	}
	return false
}

func weight(arg *float64) float64 {
	if arg == nil {
		return 0
	}
	return *arg
}
