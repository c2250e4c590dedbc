package camera

import (
	"context"
	"reflect"
	"slices"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/viam-labs/depthoverlay/logging"
	"github.com/viam-labs/depthoverlay/utils"
)

// DeviceConfig selects a device model and carries its model specific attributes.
type DeviceConfig struct {
	Name       string             `json:"name"`
	Model      string             `json:"model"`
	Attributes utils.AttributeMap `json:"attributes,omitempty"`
}

// Validate checks the parts of the config every model needs.
func (conf DeviceConfig) Validate(path string) error {
	if conf.Model == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "model")
	}
	if !lo.Contains(RegisteredModels(), conf.Model) {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown camera model %q", conf.Model))
	}
	return nil
}

// ConfigValidator is implemented by every model's native config.
type ConfigValidator interface {
	Validate(path string) error
}

// A Registration describes how to build a device model from its native config.
type Registration[ConfigT ConfigValidator] struct {
	Constructor func(ctx context.Context, name string, conf ConfigT, logger logging.Logger) (Device, error)
}

type createDevice func(ctx context.Context, conf DeviceConfig, logger logging.Logger) (Device, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]createDevice{}
)

// RegisterDevice registers a device model. It panics if the model is registered twice.
func RegisterDevice[ConfigT ConfigValidator](model string, reg Registration[ConfigT]) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, old := registry[model]; old {
		panic(errors.Errorf("trying to register two camera models named %q", model))
	}
	if reg.Constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for camera model %q", model))
	}
	registry[model] = func(ctx context.Context, conf DeviceConfig, logger logging.Logger) (Device, error) {
		native, err := TransformAttributeMap[ConfigT](conf.Attributes)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot decode attributes of camera %q", conf.Name)
		}
		if err := native.Validate("camera.attributes"); err != nil {
			return nil, err
		}
		return reg.Constructor(ctx, conf.Name, native, logger)
	}
}

// RegisteredModels returns the names of every registered model, sorted.
func RegisteredModels() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	models := lo.Keys(registry)
	slices.Sort(models)
	return models
}

// NewDevice builds the device described by conf.
func NewDevice(ctx context.Context, conf DeviceConfig, logger logging.Logger) (Device, error) {
	registryMu.RLock()
	create, ok := registry[conf.Model]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown camera model %q", conf.Model)
	}
	return create(ctx, conf, logger.Sublogger(conf.Model))
}

// TransformAttributeMap decodes free-form attributes into a model's native config type, matching
// keys against json tags.
func TransformAttributeMap[T any](attributes utils.AttributeMap) (T, error) {
	var out T

	var forResult interface{}
	toT := reflect.TypeOf(out)
	if toT == nil {
		return out, errors.New("cannot decode attributes into an interface type")
	}
	if toT.Kind() == reflect.Ptr {
		var ok bool
		out, ok = reflect.New(toT.Elem()).Interface().(T)
		if !ok {
			return out, errors.Errorf("failed to allocate default config type %T", out)
		}
		forResult = out
	} else {
		forResult = &out
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           forResult,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(map[string]interface{}(attributes)); err != nil {
		return out, err
	}
	return out, nil
}
