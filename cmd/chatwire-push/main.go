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

// chatwire-push is the offline notification consumer: it drains the main and
// retry queues and delivers FCM and web pushes.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/openimsdk/tools/log"
	"github.com/openimsdk/tools/mcontext"
	"github.com/openimsdk/tools/system/program"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/chatwire/chatwire-server/internal/push"
	"github.com/chatwire/chatwire-server/internal/push/offlinepush"
	"github.com/chatwire/chatwire-server/internal/push/offlinepush/sns"
	"github.com/chatwire/chatwire-server/pkg/common/config"
	"github.com/chatwire/chatwire-server/pkg/common/prommetrics"
	"github.com/chatwire/chatwire-server/pkg/common/startup"
)

func main() {
	var configPath string
	rootCmd := &cobra.Command{
		Use:          "chatwire-push",
		Short:        "Chatwire offline notification consumer",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the config file")
	if err := rootCmd.Execute(); err != nil {
		program.ExitWithError(err)
	}
}

func run(configPath string) error {
	conf := &config.Config{}
	if err := config.Load(configPath, conf); err != nil {
		return err
	}
	if err := startup.Logger(conf, "chatwire-push"); err != nil {
		return err
	}
	bootCtx := mcontext.NewCtx("push-boot-" + uuid.NewString())

	chatDB, pushDB, err := startup.Databases(bootCtx, conf)
	if err != nil {
		return err
	}
	queues, err := startup.Queues(bootCtx, conf)
	if err != nil {
		return err
	}
	pusher, err := offlinepush.NewOfflinePusher(&conf.Push)
	if err != nil {
		return err
	}
	webPush, err := sns.NewPublisher(bootCtx, &conf.Push.SNS)
	if err != nil {
		return err
	}

	if conf.Prometheus.Enable {
		go func() {
			if err := prommetrics.Start(conf.Prometheus.Port); err != nil {
				log.ZError(bootCtx, "prometheus listener failed", err, "port", conf.Prometheus.Port)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := push.NewConsumer(conf, chatDB, pushDB, queues, pusher, webPush)
	log.ZInfo(bootCtx, "push consumer started", "provider", conf.Push.Enable)
	if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.ZInfo(bootCtx, "push consumer stopped")
	return nil
}
