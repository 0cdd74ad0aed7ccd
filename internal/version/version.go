package version

import (
	"fmt"
	"runtime"
)

// Version/Commit 可在构建时通过 -ldflags 注入，默认使用开发占位符。
var (
	Version = "0.1.0"
	Commit  = "dev"
)

// Full 返回便于 CLI 打印的完整版本信息。
func Full() string {
	return fmt.Sprintf("flowcache %s (%s, %s)", Version, Commit, runtime.Version())
}

// Via 返回代理写入上游请求的 Via 头取值。
func Via() string {
	return "1.1 flowcache/" + Version
}
