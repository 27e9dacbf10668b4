package main

import (
	"context"
	"flag"
	"fmt"

	"peersync/cmd/server/wire"
	"peersync/pkg/config"
	"peersync/pkg/log"

	"go.uber.org/zap"
)

// @title           PeerSync API
// @version         1.0.0
// @description     PeerSync replicates records between distributed nodes over HTTP, with per-resource pull/push tasks, conflict policies and scheduled runs.
// @termsOfService  http://swagger.io/terms/
// @contact.name   PeerSync Support
// @contact.url    https://github.com/peersync/peersync
// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT
// @host      localhost:8000
// @securityDefinitions.apiKey Bearer
// @in header
// @name Authorization
// @securityDefinitions.basic BasicAuth
// @externalDocs.description  OpenAPI
// @externalDocs.url          https://swagger.io/resources/open-api/
func main() {
	var envConf = flag.String("conf", "config/local.yml", "config path, eg: -conf ./config/local.yml")
	flag.Parse()
	conf := config.NewConfig(*envConf)

	logger := log.NewLog(conf)

	app, cleanup, err := wire.NewWire(conf, logger)
	defer cleanup()
	if err != nil {
		panic(err)
	}
	logger.Info("server start", zap.String("host", fmt.Sprintf("http://%s:%d", conf.GetString("http.host"), conf.GetInt("http.port"))))
	logger.Info("docs addr", zap.String("addr", fmt.Sprintf("http://%s:%d/swagger/index.html", conf.GetString("http.host"), conf.GetInt("http.port"))))
	if err = app.Run(context.Background()); err != nil {
		panic(err)
	}
}
