// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/33cn/dispatch/record"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ErrHashMismatch the running hash of a stream is not the expected one
var ErrHashMismatch = errors.New("ErrHashMismatch")

// VerifyCmd decodes a record stream and checks its running hash
func VerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Decode a record stream and check its running hash",
		Run:   verify,
	}
	addVerifyFlags(cmd)
	return cmd
}

func addVerifyFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("in", "i", "", "record stream file")
	cmd.MarkFlagRequired("in")
	cmd.Flags().StringP("hash", "", "", "expected running hash, hex")
	cmd.Flags().BoolP("quiet", "q", false, "only print the totals")
}

func verify(cmd *cobra.Command, args []string) {
	in, _ := cmd.Flags().GetString("in")
	expect, _ := cmd.Flags().GetString("hash")
	quiet, _ := cmd.Flags().GetBool("quiet")
	data, err := ioutil.ReadFile(in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	var report io.Writer = os.Stdout
	if quiet {
		report = nil
	}
	n, hash, err := VerifyStream(data, expect, report)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("records: %d\nrunning hash: %s\n", n, hex.EncodeToString(hash[:]))
}

// VerifyStream decodes every record of data and computes the running hash. A non empty expect
// must match it.
func VerifyStream(data []byte, expect string, report io.Writer) (int, [32]byte, error) {
	var hash [32]byte
	frames, err := record.SplitFrames(data)
	if err != nil {
		return 0, hash, err
	}
	for i, f := range frames {
		r, err := record.DecodeRecord(f)
		if err != nil {
			return i, hash, errors.Wrapf(err, "record %d", i)
		}
		if report != nil {
			fmt.Fprintln(report, summary(i, r))
		}
	}
	hash = record.HashFrames([32]byte{}, frames)
	if expect != "" {
		want, err := hex.DecodeString(expect)
		if err != nil {
			return len(frames), hash, errors.Wrap(err, "expected hash")
		}
		if !bytes.Equal(want, hash[:]) {
			return len(frames), hash, errors.Wrapf(ErrHashMismatch, "got %x", hash)
		}
	}
	return len(frames), hash, nil
}
