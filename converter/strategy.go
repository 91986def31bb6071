package converter

import (
	"fmt"
	"go.uber.org/zap"
	"sort"
	"sync"
)

// Options carries the engine settings shared by every implementation.
type Options struct {
	JPEGQuality int
	WebPQuality int
}

type Factory func(logger *zap.Logger, opts Options) (Engine, error)

var (
	lock      = &sync.RWMutex{}
	factories = map[string]Factory{}
)

// Register makes an engine selectable by name. Engines call it from init.
func Register(name string, f Factory) {
	lock.Lock()
	defer lock.Unlock()

	if _, dup := factories[name]; dup {
		panic("converter: engine registered twice: " + name)
	}
	factories[name] = f
}

func Registered() []string {
	lock.RLock()
	defer lock.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func New(name string, logger *zap.Logger, opts Options) (Engine, error) {
	lock.RLock()
	f, ok := factories[name]
	lock.RUnlock()

	if !ok {
		return nil, fmt.Errorf("engine %q is not compiled in (available: %v)", name, Registered())
	}

	return f(logger, opts)
}
