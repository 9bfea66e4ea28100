// Copyright © 2024 Chatwire. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/openimsdk/tools/errs"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override config file
// values, e.g. CHATWIRE_MONGO_URI overrides mongo.uri.
const EnvPrefix = "CHATWIRE"

// Load reads the YAML config at path into config, applying environment
// variable overrides.
func Load(path string, config *Config) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.ReadInConfig(); err != nil {
		return errs.WrapMsg(err, "failed to read config file", "path", path)
	}
	if err := v.Unmarshal(config, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.StringToTimeDurationHookFunc()
	}); err != nil {
		return errs.WrapMsg(err, "failed to unmarshal config", "path", path)
	}
	applyDefaults(config)
	return nil
}

func applyDefaults(c *Config) {
	if c.Environment == "" {
		c.Environment = EnvDev
	}
	if c.Gateway.MaxConnNum == 0 {
		c.Gateway.MaxConnNum = 100000
	}
	if c.Gateway.HandshakeTimeout == 0 {
		c.Gateway.HandshakeTimeout = 10 * time.Second
	}
	if c.Gateway.OfflineGrace == 0 {
		c.Gateway.OfflineGrace = 60 * time.Second
	}
	if c.Gateway.SubscriptionSyncInterval == 0 {
		c.Gateway.SubscriptionSyncInterval = 30 * time.Second
	}
	if c.Queue.WaitTime == 0 {
		c.Queue.WaitTime = 20 * time.Second
	}
	if c.Queue.VisibilityTimeout == 0 {
		c.Queue.VisibilityTimeout = 60 * time.Second
	}
	if c.Push.MaxRetries == 0 {
		c.Push.MaxRetries = 5
	}
	if c.Push.RetryBase == 0 {
		c.Push.RetryBase = 30 * time.Second
	}
	if c.Push.RetryDelayCap == 0 {
		c.Push.RetryDelayCap = time.Hour
	}
	if c.Push.FCM.BatchSize == 0 {
		c.Push.FCM.BatchSize = 500
	}
	if c.Maintenance.RepairConcurrency == 0 {
		c.Maintenance.RepairConcurrency = 8
	}
}
