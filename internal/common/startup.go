package common

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	commonconfig "github.com/G-Research/phononflow/internal/common/config"
	"github.com/G-Research/phononflow/internal/common/health"
	"github.com/G-Research/phononflow/internal/common/logging"
)

// LoadConfig reads config.yaml from defaultPath, then merges each user supplied file on top of it.
// Environment variables prefixed with PHONONFLOW_ override both.
func LoadConfig(config interface{}, defaultPath string, overrideConfigs []string) {
	if err := ReadConfig(viper.GetViper(), config, defaultPath, overrideConfigs); err != nil {
		log.Error(err)
		os.Exit(-1)
	}
}

// ReadConfig is LoadConfig on an explicit viper instance, returning errors instead of exiting.
func ReadConfig(v *viper.Viper, config interface{}, defaultPath string, overrideConfigs []string) error {
	v.SetConfigName("config")
	v.AddConfigPath(defaultPath)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "error reading base config path=%s", defaultPath)
	}
	log.Infof("Read base config from %s", v.ConfigFileUsed())

	for _, overrideConfig := range overrideConfigs {
		if overrideConfig == "" {
			continue
		}
		v.SetConfigFile(overrideConfig)
		if err := v.MergeInConfig(); err != nil {
			return errors.Wrapf(err, "error reading config from %s", overrideConfig)
		}
		log.Infof("Read config from %s", v.ConfigFileUsed())
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("PHONONFLOW")
	v.AutomaticEnv()

	if err := v.Unmarshal(config, commonconfig.CustomHooks...); err != nil {
		return errors.Wrap(err, "error unmarshalling config")
	}
	return nil
}

func BindCommandlineArguments() {
	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		log.Error(err)
		os.Exit(-1)
	}
}

func ConfigureLogging() {
	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(os.Stdout)
}

func ConfigureCommandLineLogging() {
	log.SetFormatter(new(logging.CommandLineFormatter))
	log.SetOutput(os.Stderr)
}

// ServeMetrics exposes prometheus metrics and a health endpoint on the given port.
// A port of 0 disables the server; the returned function is then a no-op.
func ServeMetrics(port uint16, checker health.Checker) (shutdown func()) {
	if port == 0 {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	health.SetupHttpMux(mux, checker)
	return ServeHttp(port, mux)
}

func ServeHttp(port uint16, mux http.Handler) (shutdown func()) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting http server listening on %d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server stopped unexpectedly")
		}
	}()

	return func() {
		log.Infof("Stopping http server listening on %d", port)
		if err := srv.Close(); err != nil {
			log.WithError(err).Warn("http server did not shut down cleanly")
		}
	}
}
