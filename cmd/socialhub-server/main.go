// @title socialhub API
// @version 1.0
// @description Conversational assistant for drafting, scheduling and publishing social posts
// @host localhost:8080
// @BasePath /api
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"socialhub-server-go/internal/bootstrap"
	"socialhub-server-go/internal/domain/auth"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file (default .config.yaml)")
	issueFor := flag.String("issue-token", "", "print a development bearer token for this user id and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the token printed by -issue-token")
	flag.Parse()

	if *issueFor != "" {
		secret := os.Getenv("SOCIALHUB_JWT_SECRET")
		token, err := auth.NewAuthToken(secret).WithTTL(*tokenTTL).GenerateToken(*issueFor)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "issue token: %v (set SOCIALHUB_JWT_SECRET)\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	fmt.Printf("[%s] [INFO] [BOOT] starting socialhub-server...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.Run(context.Background(), bootstrap.Options{ConfigPath: *configPath}); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "socialhub-server failed: %v\n", err)
		os.Exit(1)
	}
}
