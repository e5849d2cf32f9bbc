package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalText(t *testing.T) {
	t.Parallel()

	var d Duration

	require.NoError(t, d.UnmarshalText([]byte("15s")))
	require.Equal(t, 15*time.Second, d.Duration)

	require.NoError(t, d.UnmarshalText([]byte("2m30s")))
	require.Equal(t, 2*time.Minute+30*time.Second, d.Duration)

	require.Error(t, d.UnmarshalText([]byte("not a duration")))
}

func TestDuration_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	d := NewDuration(90 * time.Second)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	require.JSONEq(t, `"1m30s"`, string(data))

	var decoded Duration
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, d.Duration, decoded.Duration)

	// Plain numbers are accepted as nanoseconds.
	require.NoError(t, json.Unmarshal([]byte("1000000000"), &decoded))
	require.Equal(t, time.Second, decoded.Duration)
}

func TestDuration_YAML(t *testing.T) {
	t.Parallel()

	var cfg struct {
		Interval Duration `yaml:"interval"`
	}

	require.NoError(t, yaml.Unmarshal([]byte("interval: 45s"), &cfg))
	require.Equal(t, 45*time.Second, cfg.Interval.Duration)
}
