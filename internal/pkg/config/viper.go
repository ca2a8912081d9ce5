package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override file values,
// e.g. APP_MODULES_VERIFICATION_MAX_ATTEMPTS for modules.verification.max_attempts.
const EnvPrefix = "APP"

var defaults = map[string]any{
	"modules.verification.enabled":                       true,
	"modules.verification.code_ttl_minutes":              15,
	"modules.verification.resend_cooldown_seconds":       60,
	"modules.verification.max_attempts":                  3,
	"modules.verification.lock_seconds":                  10,
	"modules.verification.store.driver":                  "redis",
	"modules.verification.store.timeout_seconds":         3,
	"modules.verification.store.expired_retention_hours": 24,
	"modules.verification.store.sweep_interval_minutes":  10,
	"modules.verification.gateway.timeout_seconds":       5,
	"modules.notification.enabled":                       true,
	"instrument.log_mask_fields":                         "code,password,authorization,api-key,code_hash",
	"instrument.log_mask_email_fields":                   "email,recipient,to",
	"instrument.log_level":                               "info",
	"jwt.ttl_minutes":                                    60,
	"jwt.leeway_seconds":                                 30,
	"app.server.shutdown_timeout_seconds":                10,
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Viper is the Config backed by github.com/spf13/viper.
type Viper struct {
	v *viper.Viper
}

// NewViper reads the file at pathFile and reloads it whenever it changes,
// so tuning values such as the resend cooldown apply without a restart.
func NewViper(pathFile string) (*Viper, error) {
	v := newViper()
	v.SetConfigFile(filepath.Clean(pathFile))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("config reloaded", "path", e.Name, "op", e.Op.String())
	})
	v.WatchConfig()

	return &Viper{v: v}, nil
}

// NewViperFromBytes reads configuration of configType ("yaml", "json", ...)
// from data.
func NewViperFromBytes(configType string, data []byte) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config: type is required")
	}

	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return &Viper{v: v}, nil
}

func (vc *Viper) GetString(key string) string { return vc.v.GetString(key) }
func (vc *Viper) GetBool(key string) bool { return vc.v.GetBool(key) }
func (vc *Viper) GetInt(key string) int { return vc.v.GetInt(key) }
func (vc *Viper) GetInt32(key string) int32 { return vc.v.GetInt32(key) }
func (vc *Viper) GetInt64(key string) int64 { return vc.v.GetInt64(key) }
func (vc *Viper) GetUint16(key string) uint16 { return vc.v.GetUint16(key) }
func (vc *Viper) GetUint64(key string) uint64 { return vc.v.GetUint64(key) }
func (vc *Viper) GetFloat64(key string) float64 { return vc.v.GetFloat64(key) }
func (vc *Viper) GetSecond(key string) time.Duration { return vc.units(key, time.Second) }
func (vc *Viper) GetMinute(key string) time.Duration { return vc.units(key, time.Minute) }
func (vc *Viper) GetHour(key string) time.Duration { return vc.units(key, time.Hour) }

func (vc *Viper) units(key string, unit time.Duration) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * unit
}

func (vc *Viper) GetBinary(key string) []byte {
	data, err := base64.StdEncoding.DecodeString(vc.v.GetString(key))
	if err != nil {
		return nil
	}
	return data
}

func (vc *Viper) GetArray(key string) []string {
	var items []string
	switch raw := vc.v.Get(key).(type) {
	case nil:
		return nil
	case []any, []string:
		items = cast.ToStringSlice(raw)
	default:
		items = strings.Split(cast.ToString(raw), ",")
	}

	return lo.FilterMap(items, func(item string, _ int) (string, bool) {
		item = strings.TrimSpace(item)
		return item, item != ""
	})
}

// Close stops nothing; file watching ends with the process.
func (vc *Viper) Close() error { return nil }
