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

// chatwire-api serves the REST surface and the websocket gateway in one
// process, so locally originated events reach local sockets even when the
// bus is down.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/openimsdk/tools/log"
	"github.com/openimsdk/tools/mcontext"
	"github.com/openimsdk/tools/system/program"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/chatwire/chatwire-server/internal/api"
	"github.com/chatwire/chatwire-server/internal/conversation"
	"github.com/chatwire/chatwire-server/internal/msg"
	"github.com/chatwire/chatwire-server/internal/msggateway"
	"github.com/chatwire/chatwire-server/internal/push"
	"github.com/chatwire/chatwire-server/internal/push/offlinepush"
	"github.com/chatwire/chatwire-server/internal/push/offlinepush/dummy"
	"github.com/chatwire/chatwire-server/internal/push/offlinepush/sns"
	"github.com/chatwire/chatwire-server/pkg/common/authverify"
	"github.com/chatwire/chatwire-server/pkg/common/config"
	"github.com/chatwire/chatwire-server/pkg/common/prommetrics"
	"github.com/chatwire/chatwire-server/pkg/common/startup"
	cacheredis "github.com/chatwire/chatwire-server/pkg/common/storage/cache/redis"
	"github.com/chatwire/chatwire-server/pkg/pubsub"
)

func main() {
	var configPath string
	rootCmd := &cobra.Command{
		Use:          "chatwire-api",
		Short:        "Chatwire REST API and websocket gateway",
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
	if err := startup.Logger(conf, "chatwire-api"); err != nil {
		return err
	}
	ctx := mcontext.NewCtx("api-boot-" + uuid.NewString())

	chatDB, pushDB, err := startup.Databases(ctx, conf)
	if err != nil {
		return err
	}
	rdb, err := startup.Redis(ctx, conf)
	if err != nil {
		return err
	}
	queues, err := startup.Queues(ctx, conf)
	if err != nil {
		return err
	}

	bus := pubsub.NewRedisBus(rdb)
	registry := cacheredis.NewConnRegistry(rdb)
	verifier := authverify.NewTokenVerifier(conf.Environment, &conf.Auth)
	gateway := msggateway.NewWsServer(conf, bus, registry, chatDB, verifier)

	// The inline consumer absorbs queue outages: if an enqueue fails the
	// event is processed in-process instead of being dropped.
	pusher, err := offlinepush.NewOfflinePusher(&conf.Push)
	if err != nil {
		log.ZWarn(ctx, "offline pusher unavailable, inline pushes degraded to dummy", err)
		pusher = dummy.NewClient()
	}
	webPush, err := sns.NewPublisher(ctx, &conf.Push.SNS)
	if err != nil {
		log.ZWarn(ctx, "sns publisher unavailable, web pushes disabled", err)
		webPush = nil
	}
	consumer := push.NewConsumer(conf, chatDB, pushDB, queues, pusher, webPush)

	msgSvc := msg.NewService(conf, chatDB, bus, registry, queues, gateway, consumer.HandleBody)
	convSvc := conversation.NewService(conf, chatDB, bus, queues, gateway, consumer.HandleBody)
	apiServer := api.NewServer(conf, verifier, convSvc, msgSvc, pushDB)

	if conf.Prometheus.Enable {
		go func() {
			if err := prommetrics.Start(conf.Prometheus.Port); err != nil {
				log.ZError(ctx, "prometheus listener failed", err, "port", conf.Prometheus.Port)
			}
		}()
	}

	if conf.Maintenance.AutoRepairCron != "" {
		crontab := cron.New()
		if _, err := crontab.AddFunc(conf.Maintenance.AutoRepairCron, func() {
			repairCtx := mcontext.NewCtx("auto-repair-" + uuid.NewString())
			repaired, err := msgSvc.RepairAllUnread(repairCtx)
			if err != nil {
				log.ZError(repairCtx, "scheduled unread repair failed", err)
				return
			}
			log.ZInfo(repairCtx, "scheduled unread repair done", "repaired", repaired)
		}); err != nil {
			return err
		}
		crontab.Start()
		defer crontab.Stop()
	}

	gatewayDone := make(chan error, 1)
	gatewayErr := make(chan error, 1)
	go func() {
		gatewayErr <- gateway.Run(gatewayDone)
	}()

	httpServer := &http.Server{
		Addr:    net.JoinHostPort(conf.API.ListenIP, strconv.Itoa(conf.API.Port)),
		Handler: apiServer.Engine(),
	}
	httpErr := make(chan error, 1)
	go func() {
		log.ZInfo(ctx, "api listening", "addr", httpServer.Addr, "wsPort", conf.Gateway.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		log.ZInfo(ctx, "shutting down", "signal", sig.String())
	case err := <-httpErr:
		log.ZError(ctx, "api listener failed", err)
		gatewayDone <- err
		<-gatewayErr
		return err
	case err := <-gatewayErr:
		log.ZError(ctx, "gateway exited", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.ZWarn(ctx, "api shutdown incomplete", err)
	}
	gatewayDone <- nil
	return <-gatewayErr
}
