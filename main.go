// Copyright 2020 Qiniu Cloud (qiniu.com)
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

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/qiniu/x/log"

	"github.com/solutions/interview-gate/internal/common/utils"
	"github.com/solutions/interview-gate/internal/service/task"
	"github.com/solutions/interview-gate/internal/service/web"
)

var (
	configFilePath = "interview-gate.conf"
	envFilePath    = ".env"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	flag.StringVar(&configFilePath, "f", configFilePath, "configuration file to run interview-gate server")
	flag.StringVar(&envFilePath, "env", envFilePath, "dotenv file with secrets, optional")
	flag.Parse()

	if err := godotenv.Load(envFilePath); err != nil && !os.IsNotExist(err) {
		log.Warnf("failed to load %s, error %v", envFilePath, err)
	}
	utils.InitConf(configFilePath)
	log.SetOutputLevel(utils.DefaultConf.DebugLevel)

	ctx := context.Background()
	services, err := web.NewServices(ctx, &utils.DefaultConf)
	if err != nil {
		log.Fatalf("failed to create services, error %v", err)
	}

	// 启动定时任务
	sessionTask := task.NewSessionTask(services.Sweeper, nil)
	_, stopTasks, err := sessionTask.Schedule(sweepInterval)
	if err != nil {
		log.Fatalf("failed to schedule session task, error %v", err)
	}

	// 启动 gin HTTP server。
	server := &http.Server{
		Addr:    utils.DefaultConf.ListenAddr,
		Handler: web.NewRouter(services),
	}
	errch := make(chan error, 1)
	go func() {
		errch <- server.ListenAndServe()
	}()
	log.Infof("interview-gate listening on %s", utils.DefaultConf.ListenAddr)

	qC := make(chan os.Signal, 1)
	signal.Notify(qC, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-qC:
		log.Info(s.String())
	case err = <-errch:
		log.Error("http server stopped, error", err.Error())
	}

	close(stopTasks)
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("failed to shutdown http server, error %v", err)
	}
}
