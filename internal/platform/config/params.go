package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ParamsKey is the kv key holding runtime overrides written by `outcomes params set`.
const ParamsKey = "params"

// Params overrides the attribution policy and outcome settings. Unset fields
// keep the configured value.
type Params struct {
	DirectEnabled         *bool          `json:"direct_enabled,omitempty"`
	IndirectEnabled       *bool          `json:"indirect_enabled,omitempty"`
	UnattributedEnabled   *bool          `json:"unattributed_enabled,omitempty"`
	NotificationLimit     *int           `json:"notification_limit,omitempty"`
	IndirectWindowMinutes *int           `json:"indirect_window_minutes,omitempty"`
	SessionThreshold      *time.Duration `json:"session_threshold,omitempty"`
	CacheActive           *bool          `json:"cache_active,omitempty"`
}

var paramKeys = []string{
	"cache_active",
	"direct_enabled",
	"indirect_enabled",
	"indirect_window_minutes",
	"notification_limit",
	"session_threshold",
	"unattributed_enabled",
}

func ParamKeys() []string {
	return slices.Clone(paramKeys)
}

func (p Params) Apply(c Config) Config {
	if p.DirectEnabled != nil {
		c.Attribution.DirectEnabled = *p.DirectEnabled
	}
	if p.IndirectEnabled != nil {
		c.Attribution.IndirectEnabled = *p.IndirectEnabled
	}
	if p.UnattributedEnabled != nil {
		c.Attribution.UnattributedEnabled = *p.UnattributedEnabled
	}
	if p.NotificationLimit != nil {
		c.Attribution.NotificationLimit = *p.NotificationLimit
	}
	if p.IndirectWindowMinutes != nil {
		c.Attribution.IndirectWindowMinutes = *p.IndirectWindowMinutes
	}
	if p.SessionThreshold != nil {
		c.Attribution.SessionThreshold = *p.SessionThreshold
	}
	if p.CacheActive != nil {
		c.Outcomes.CacheActive = *p.CacheActive
	}
	return c
}

// Set parses value for key. Durations accept Go syntax ("45s").
func (p *Params) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "direct_enabled":
		return setBool(&p.DirectEnabled, key, value)
	case "indirect_enabled":
		return setBool(&p.IndirectEnabled, key, value)
	case "unattributed_enabled":
		return setBool(&p.UnattributedEnabled, key, value)
	case "cache_active":
		return setBool(&p.CacheActive, key, value)
	case "notification_limit":
		return setPositiveInt(&p.NotificationLimit, key, value)
	case "indirect_window_minutes":
		return setPositiveInt(&p.IndirectWindowMinutes, key, value)
	case "session_threshold":
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("%s: expected a non-negative duration, got %q", key, value)
		}
		p.SessionThreshold = &d
		return nil
	default:
		return fmt.Errorf("unknown param %q (known: %s)", key, strings.Join(paramKeys, ", "))
	}
}

func setBool(dst **bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s: expected true or false, got %q", key, value)
	}
	*dst = &b
	return nil
}

func setPositiveInt(dst **int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fmt.Errorf("%s: expected a positive integer, got %q", key, value)
	}
	*dst = &n
	return nil
}
