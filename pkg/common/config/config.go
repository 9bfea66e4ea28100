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
	"time"

	"github.com/openimsdk/tools/db/mongoutil"
	"github.com/openimsdk/tools/db/redisutil"
)

const (
	EnvDev  = "DEV"
	EnvProd = "PROD"
)

// Config is the root configuration shared by both binaries. Each section is
// loaded from config.yaml and may be overridden by CHATWIRE_* environment
// variables (dots become underscores).
type Config struct {
	Environment string      `mapstructure:"environment"` // DEV or PROD
	InstanceID  string      `mapstructure:"instanceID"`  // unique per running api instance
	API         API         `mapstructure:"api"`
	Gateway     Gateway     `mapstructure:"gateway"`
	Mongo       Mongo       `mapstructure:"mongo"`
	Redis       Redis       `mapstructure:"redis"`
	Queue       Queue       `mapstructure:"queue"`
	Push        Push        `mapstructure:"push"`
	Auth        Auth        `mapstructure:"auth"`
	Log         Log         `mapstructure:"log"`
	Prometheus  Prometheus  `mapstructure:"prometheus"`
	Maintenance Maintenance `mapstructure:"maintenance"`
}

type API struct {
	ListenIP string `mapstructure:"listenIP"`
	Port     int    `mapstructure:"port"`
}

type Gateway struct {
	Port             int           `mapstructure:"port"`
	MaxConnNum       int64         `mapstructure:"maxConnNum"`
	HandshakeTimeout time.Duration `mapstructure:"handshakeTimeout"`
	WriteBufferSize  int           `mapstructure:"writeBufferSize"`
	// OfflineGrace is how long a user keeps their online status after the
	// last connection closes. A reconnect within the window cancels it.
	OfflineGrace time.Duration `mapstructure:"offlineGrace"`
	// SubscriptionSyncInterval drives the periodic diff between locally
	// served conversation channels and the bus subscription set.
	SubscriptionSyncInterval time.Duration `mapstructure:"subscriptionSyncInterval"`
}

type Mongo struct {
	URI         string   `mapstructure:"uri"`
	Address     []string `mapstructure:"address"`
	Database    string   `mapstructure:"database"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	AuthSource  string   `mapstructure:"authSource"`
	MaxPoolSize int      `mapstructure:"maxPoolSize"`
	MaxRetry    int      `mapstructure:"maxRetry"`
}

type Redis struct {
	Address     []string `mapstructure:"address"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	ClusterMode bool     `mapstructure:"clusterMode"`
	DB          int      `mapstructure:"db"`
	MaxRetry    int      `mapstructure:"maxRetry"`
	PoolSize    int      `mapstructure:"poolSize"`
}

// Queue holds the notification pipeline queues. Driver is "sqs" or "memory";
// the memory driver exists for local runs and tests only.
type Queue struct {
	Driver            string        `mapstructure:"driver"`
	Region            string        `mapstructure:"region"`
	Endpoint          string        `mapstructure:"endpoint"` // optional, for localstack
	MainURL           string        `mapstructure:"mainURL"`
	RetryURL          string        `mapstructure:"retryURL"`
	DLQURL            string        `mapstructure:"dlqURL"`
	WaitTime          time.Duration `mapstructure:"waitTime"`
	VisibilityTimeout time.Duration `mapstructure:"visibilityTimeout"`
}

type Push struct {
	Enable        string        `mapstructure:"enable"` // fcm, dummy
	FCM           FCM           `mapstructure:"fcm"`
	SNS           SNS           `mapstructure:"sns"`
	MaxRetries    int           `mapstructure:"maxRetries"`
	RetryBase     time.Duration `mapstructure:"retryBase"`
	RetryDelayCap time.Duration `mapstructure:"retryDelayCap"`
}

type FCM struct {
	FilePath  string `mapstructure:"filePath"` // service account key file
	AuthURL   string `mapstructure:"authURL"`  // alternative: fetch credentials JSON
	BatchSize int    `mapstructure:"batchSize"`
}

// SNS enables web push through an SNS topic. Optional; disabled when TopicARN
// is empty.
type SNS struct {
	Region   string `mapstructure:"region"`
	TopicARN string `mapstructure:"topicARN"`
}

type Auth struct {
	Secret          string        `mapstructure:"secret"`
	Expire          time.Duration `mapstructure:"expire"`
	ProxyAuthSecret string        `mapstructure:"proxyAuthSecret"`
	AdminUserIDs    []string      `mapstructure:"adminUserIDs"`
}

type Log struct {
	StorageLocation     string `mapstructure:"storageLocation"`
	RotationTime        uint   `mapstructure:"rotationTime"`
	RemainRotationCount uint   `mapstructure:"remainRotationCount"`
	RemainLogLevel      int    `mapstructure:"remainLogLevel"`
	IsStdout            bool   `mapstructure:"isStdout"`
	IsJson              bool   `mapstructure:"isJson"`
	IsSimplify          bool   `mapstructure:"isSimplify"`
}

type Prometheus struct {
	Enable bool `mapstructure:"enable"`
	Port   int  `mapstructure:"port"`
}

type Maintenance struct {
	// AutoRepairCron, when non-empty, schedules repair of drifted unread
	// counters inside the api binary (cron spec, e.g. "0 4 * * *").
	AutoRepairCron string `mapstructure:"autoRepairCron"`
	// RepairConcurrency bounds the number of conversations repaired in
	// parallel.
	RepairConcurrency int `mapstructure:"repairConcurrency"`
}

func (m *Mongo) Build() *mongoutil.Config {
	return &mongoutil.Config{
		Uri:         m.URI,
		Address:     m.Address,
		Database:    m.Database,
		Username:    m.Username,
		Password:    m.Password,
		AuthSource:  m.AuthSource,
		MaxPoolSize: m.MaxPoolSize,
		MaxRetry:    m.MaxRetry,
	}
}

func (r *Redis) Build() *redisutil.Config {
	return &redisutil.Config{
		ClusterMode: r.ClusterMode,
		Address:     r.Address,
		Username:    r.Username,
		Password:    r.Password,
		DB:          r.DB,
		MaxRetry:    r.MaxRetry,
		PoolSize:    r.PoolSize,
	}
}

func (c *Config) IsDev() bool {
	return c.Environment != EnvProd
}
