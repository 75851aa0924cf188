// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/33cn/dispatch/cmd/dispatch/commands"
	"github.com/33cn/dispatch/common/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "dispatch replay tools",
}

func init() {
	rootCmd.PersistentFlags().StringP("conf", "c", "", "config file, defaults when empty")

	rootCmd.AddCommand(
		commands.ReplayCmd(),
		commands.VerifyCmd(),
		commands.VersionCmd())
}

func main() {
	log.SetLogLevel("error")
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
