package tracker

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/alejandrofontan/DROID-SLAM/logging"
)

// A CreateEngine constructs an engine for frames of config.ImageSize.
type CreateEngine func(ctx context.Context, config Config, logger logging.Logger) (Engine, error)

// Registration stores an Engine constructor (mandatory).
type Registration struct {
	Constructor CreateEngine
	// Description is shown in the command line help.
	Description string
}

var registry = make(map[string]Registration)

// Register registers an engine under name.
func Register(name string, creator Registration) {
	if _, old := registry[name]; old {
		panic(errors.Errorf("trying to register two engines with the same name: %s", name))
	}
	if creator.Constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for engine: %s", name))
	}
	registry[name] = creator
}

// Lookup looks up an engine registration by name. nil is returned if there is no
// registration.
func Lookup(name string) *Registration {
	registration, ok := registry[name]
	if ok {
		return &registration
	}
	return nil
}

// RegisteredNames returns the sorted names of every registered engine.
func RegisteredNames() []string {
	names := lo.Keys(registry)
	sort.Strings(names)
	return names
}

// New constructs the engine registered under name.
func New(ctx context.Context, name string, config Config, logger logging.Logger) (Engine, error) {
	registration := Lookup(name)
	if registration == nil {
		return nil, errors.Errorf("unknown engine %q, registered engines: %v", name, RegisteredNames())
	}
	engine, err := registration.Constructor(ctx, config, logger.Sublogger(name))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create %s engine", name)
	}
	return engine, nil
}
