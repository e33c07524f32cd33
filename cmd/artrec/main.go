// artrec 是基于内容的文章推荐引擎命令行。
package main

import (
	"os"

	"github.com/rushteam/artrec/cmd/artrec/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
