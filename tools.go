//go:build tools

// Package tools 只用于在 go.mod 中固定 go generate 用到的工具版本
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
