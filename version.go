package main

import (
	"fmt"

	"github.com/flowcache/flowcache/internal/version"
)

// printVersion 输出注入的版本、提交与 Go 运行时信息。
func printVersion() {
	fmt.Fprintln(stdOut, version.Full())
}
