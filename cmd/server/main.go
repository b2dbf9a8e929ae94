package main

import "marketchat/internal/cli"

// @title           marketchat API
// @version         1.0
// @description     Buyer and seller conversations about marketplace products.

// @host            localhost:8000
// @BasePath        /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cli.Execute()
}
