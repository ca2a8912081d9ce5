package main

import (
	"context"

	"github.com/actg5grafindo/admin-pro-v005v/internal/app"
)

// @title           Admin Pro Verification API
// @version         1.0
// @description     Admin Pro issues and verifies one-time email codes and reports delivery logs.
// @contact.name    Contact Support
// @contact.email   support@admin-pro.local
// @license.name    MIT
// @license.url     https://mit-license.org/
// @server          http://localhost:8080
// @securityDefinitions.apikey  BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT.
func main() {
	a := app.New()
	<-a.Start()

	ctx, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout())
	defer cancel()
	a.Stop(ctx)
}
