package config

import (
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/nebula-agent/pkg/nebulaerrors"
)

// EnvPrefix is the prefix of environment variables that override profile keys.
const EnvPrefix = "NEBULA_AGENT"

const maskedValue = "******"

// JobProfile is the configuration of one agent job. Keys are dotted paths.
type JobProfile struct {
	v *viper.Viper
}

// NewJobProfile creates an empty profile that also resolves keys from
// NEBULA_AGENT_* environment variables.
func NewJobProfile() *JobProfile {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &JobProfile{v: v}
}

// NewJobProfileFromMap creates a profile holding the given flat settings.
func NewJobProfileFromMap(settings map[string]interface{}) *JobProfile {
	p := NewJobProfile()
	for k, val := range settings {
		p.Set(k, val)
	}
	return p
}

// Set overrides the value of key.
func (p *JobProfile) Set(key string, value interface{}) {
	p.v.Set(key, value)
}

// Has reports whether key has a value.
func (p *JobProfile) Has(key string) bool {
	return p.v.IsSet(key)
}

// Get returns the string value of key, or def when the key is unset.
func (p *JobProfile) Get(key, def string) string {
	if !p.v.IsSet(key) {
		return def
	}
	return p.v.GetString(key)
}

// GetInt returns the integer value of key, or def when the key is unset.
func (p *JobProfile) GetInt(key string, def int) (int, error) {
	if !p.v.IsSet(key) {
		return def, nil
	}
	n, err := cast.ToIntE(p.v.Get(key))
	if err != nil {
		return 0, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "setting is not an integer").
			WithDetail("key", key)
	}
	return n, nil
}

// GetBool returns the boolean value of key, or def when the key is unset.
func (p *JobProfile) GetBool(key string, def bool) (bool, error) {
	if !p.v.IsSet(key) {
		return def, nil
	}
	b, err := cast.ToBoolE(p.v.Get(key))
	if err != nil {
		return false, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "setting is not a boolean").
			WithDetail("key", key)
	}
	return b, nil
}

// GetDuration returns the duration value of key, or def when the key is unset.
// Plain integers are read as milliseconds.
func (p *JobProfile) GetDuration(key string, def time.Duration) (time.Duration, error) {
	if !p.v.IsSet(key) {
		return def, nil
	}
	raw := p.v.Get(key)
	if ms, err := cast.ToInt64E(raw); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := cast.ToDurationE(raw)
	if err != nil {
		return 0, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "setting is not a duration").
			WithDetail("key", key)
	}
	return d, nil
}

// Require returns the string value of key, failing when it is unset or empty.
func (p *JobProfile) Require(key string) (string, error) {
	val := p.Get(key, "")
	if val == "" {
		return "", nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "required setting is missing").
			WithDetail("key", key)
	}
	return val, nil
}

// Keys returns all keys that have a value, sorted.
func (p *JobProfile) Keys() []string {
	keys := p.v.AllKeys()
	sort.Strings(keys)
	return keys
}

// Dump writes the profile as YAML. Values of keys containing any of the
// secret substrings are masked.
func (p *JobProfile) Dump(w io.Writer, secrets ...string) error {
	flat := make(map[string]interface{}, len(p.v.AllKeys()))
	for _, key := range p.v.AllKeys() {
		val := p.v.Get(key)
		for _, s := range secrets {
			if strings.Contains(key, strings.ToLower(s)) {
				val = maskedValue
				break
			}
		}
		flat[key] = val
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(flat); err != nil {
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "failed to encode profile")
	}
	return enc.Close()
}
