package main

import (
	"fmt"
	"time"

	_uuid "github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"chatbot/controller"
	"chatbot/model"
	"chatbot/platform"
	"chatbot/service"
)

// CORSMiddleware ...
// CORS (Cross-Origin Resource Sharing)
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "http://localhost")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, UPDATE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Origin, Authorization, Accept, Client-Security-Token, Accept-Encoding, x-access-token")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
		} else {
			c.Next()
		}
	}
}

// RequestIDMiddleware ...
// Generate a unique ID and attach it to each request for future reference or use
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uuid := _uuid.New()
		c.Writer.Header().Set("X-Request-Id", uuid.String())
		c.Set("requestId", uuid.String())
		c.Next()
	}
}

func LogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		if raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method
		userAgent := c.Request.UserAgent()
		requestId := c.GetString("requestId")

		logrus.Infof(
			" [%s] %d | %v | %s | %s | %s | %s ",
			requestId,
			status,
			latency,
			clientIP,
			method,
			path,
			userAgent,
		)
	}
}

func main() {
	fmt.Println("Server started...")

	//Load the .env file
	if err := godotenv.Load(".env"); err != nil {
		fmt.Println("failed to load the env file")
	}

	cfg, err := platform.LoadConfig()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	logger := platform.Logger

	r := gin.Default()
	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LogMiddleware())

	//init database
	db, err := platform.InitDB(cfg)
	if err != nil {
		logrus.Fatalf("failed to initialize database: %v", err)
	}
	if err := model.InstallDB(db); err != nil {
		logrus.Fatalf("failed to install database schema: %v", err)
	}

	store := model.NewChatStore(db)
	llm := platform.NewLLMClient(cfg)
	relay := service.NewRelayService(store, llm, cfg.StreamTimeout)
	chat := controller.NewChatController(store, relay)

	v1 := r.Group("/v1")
	{
		v1.GET("/chats", chat.List)
		v1.POST("/chats", chat.New)
		v1.GET("/chats/:id", chat.History)
		v1.POST("/chats/:id/rename", chat.Rename)
		v1.POST("/chats/:id/remove", chat.Remove)

		v1.POST("/chat/stream", chat.Stream)
	}

	logger.Infof("listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		logrus.Fatalf("server stopped: %v", err)
	}
}
