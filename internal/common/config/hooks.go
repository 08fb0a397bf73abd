package config

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		WalltimeDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)),
}

// WalltimeDecodeHook decodes Slurm style "HH:MM:SS" strings into a Walltime.
func WalltimeDecodeHook() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != reflect.TypeOf(Walltime(0)) {
			return data, nil
		}
		if f.Kind() != reflect.String {
			return data, nil
		}
		return ParseWalltime(data.(string))
	}
}
