package main

import (
	"fmt"
	"time"

	"github.com/carepay/onboarding/config"
	"github.com/carepay/onboarding/routers"
	"github.com/carepay/onboarding/storage"
	"github.com/carepay/onboarding/tasks"
	"github.com/carepay/onboarding/utils/logger"
)

func main() {
	// Set timezone
	conf := config.ServerConfig()
	loc, _ := time.LoadLocation(conf.Timezone)
	time.Local = loc

	// Initialize Redis
	if err := storage.InitializeRedis(); err != nil {
		logger.Fatalf("Redis initialization: %v", err)
	}
	defer storage.CloseRedis()

	// Start cron jobs
	tasks.StartCronJobs()

	// Run the server
	router := routers.Routes()

	appServer := fmt.Sprintf("%s:%s", conf.Host, conf.Port)
	logger.Infof("Server Running at :%v", appServer)

	logger.Fatalf("%v", router.Run(appServer))
}
