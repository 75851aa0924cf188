// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version set with -ldflags "-X github.com/33cn/dispatch/cmd/dispatch/commands.Version=..."
var Version = "0.1.0"

// VersionCmd version command
func VersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Get tool version",
		Run:   version,
	}
	return cmd
}

func version(cmd *cobra.Command, args []string) {
	fmt.Println(Version)
}
