package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func registerRoutes(engine *gin.Engine, cfg Config, deps Deps) {
	system := newSystemHandler(deps.Monitor)
	engine.GET("/healthz", system.Healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/api/v1")
	if cfg.AuthToken != "" {
		v1.Use(bearerAuth(cfg.AuthToken))
	}

	wallets := newWalletHandler(deps.Registry)
	w := v1.Group("/wallets")
	{
		w.POST("", wallets.Create)
		w.GET("", wallets.List)
		w.GET("/:address", wallets.Get)
		w.PATCH("/:address/active", wallets.SetActive)
		w.GET("/:address/qr", wallets.QR)
	}

	transactions := newTransactionHandler(deps.Ledger, deps.Pipeline)
	tx := v1.Group("/transactions")
	{
		tx.POST("", transactions.Create)
		tx.GET("", transactions.List)
		tx.GET("/:txid", transactions.Get)
		tx.PATCH("/:txid/status", transactions.UpdateStatus)
		tx.POST("/:txid/retry", transactions.Retry)
	}

	configs := newConfigHandler(deps.Configs)
	bot := v1.Group("/bot")
	{
		bot.GET("/config/:parent", configs.Get)
		bot.PUT("/config/:parent", configs.Put)
		bot.GET("/status", system.BotStatus)
	}

	notifications := newNotificationHandler(deps.Notifications, deps.Hub)
	n := v1.Group("/notifications")
	{
		n.GET("", notifications.List)
		n.GET("/stream", notifications.Stream)
		n.PATCH("/:id/read", notifications.MarkRead)
		n.POST("/read-all", notifications.MarkAllRead)
	}

	projects := newProjectHandler(deps.Projects)
	p := v1.Group("/projects")
	{
		p.POST("", projects.Create)
		p.GET("", projects.List)
		p.GET("/:id", projects.Get)
		p.PATCH("/:id/status", projects.UpdateStatus)
		p.DELETE("/:id", projects.Delete)
	}
}
