// Package main - bktest CLI
//
// 使用方法:
//
//	go run ./cmd/bktest --config bktest.yaml describe
//	go run ./cmd/bktest --config bktest.yaml prices --symbols SPY,QQQ --start 2024-01-01 --end 2024-01-31
package main

import (
	"os"

	"github.com/opsxjacky/bktest/cmd/bktest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
