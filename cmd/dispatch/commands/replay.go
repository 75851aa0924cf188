// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package commands 命令行工具的子命令
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/33cn/dispatch/account"
	"github.com/33cn/dispatch/common/db"
	"github.com/33cn/dispatch/common/log"
	"github.com/33cn/dispatch/executor"
	"github.com/33cn/dispatch/metrics"
	"github.com/33cn/dispatch/record"
	"github.com/33cn/dispatch/state"
	"github.com/33cn/dispatch/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ReplayCmd replays a scenario through the executor and writes the record stream
func ReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the transactions of a scenario",
		Run:   replay,
	}
	addReplayFlags(cmd)
	return cmd
}

func addReplayFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("scenario", "s", "", "scenario file")
	cmd.MarkFlagRequired("scenario")
	cmd.Flags().StringP("out", "o", "", "record stream file, the [records] streamFile when empty")
	cmd.Flags().BoolP("metrics", "m", false, "log a metrics snapshot at the end")
}

func replay(cmd *cobra.Command, args []string) {
	cfgPath, _ := cmd.Flags().GetString("conf")
	path, _ := cmd.Flags().GetString("scenario")
	out, _ := cmd.Flags().GetString("out")
	showMetrics, _ := cmd.Flags().GetBool("metrics")

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	log.SetFileLog(cfg.Log)
	defer log.Close()
	if out == "" {
		out = cfg.Records.StreamFile
	}
	s, err := LoadScenario(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	var w io.Writer
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		defer f.Close()
		w = f
	}
	res, err := Replay(cfg, s, w, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Printf("records: %d\nrunning hash: %s\n", res.Records, hex.EncodeToString(res.RunningHash[:]))
	if showMetrics && res.Metrics != nil {
		res.Metrics.LogSnapshot()
	}
}

func loadConfig(path string) (*types.Config, error) {
	if path == "" {
		return types.ReadCfgString("")
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(types.ErrConfigNotFound, "config %s: %v", path, err)
	}
	return types.ReadCfgString(string(data))
}

// ReplayResult what a replay produced
type ReplayResult struct {
	RunID       string
	Records     int
	RunningHash [32]byte
	Metrics     *metrics.DispatchMetrics
}

// Replay runs s over the store configured in cfg. Genesis accounts are written when the store
// holds none of them yet. A summary line per record goes to report when it is not nil.
func Replay(cfg *types.Config, s *Scenario, w io.Writer, report io.Writer) (*ReplayResult, error) {
	runID := uuid.New().String()
	rlog := log.New("module", "replay", "run", runID)

	d, err := db.OpenDB("state", cfg.Store.Driver, cfg.Store.DbPath, int(cfg.Store.DbCache))
	if err != nil {
		return nil, err
	}
	defer d.Close()
	root := state.NewDBState(d)
	if err := genesis(cfg, s, root); err != nil {
		return nil, err
	}

	m := metrics.NewDispatchMetrics(cfg.Metrics, nil)
	exec, err := executor.New(cfg, root, w, m)
	if err != nil {
		return nil, err
	}
	txns, times, err := s.Build()
	if err != nil {
		return nil, err
	}
	creator := types.NodeInfo{NodeID: s.NodeID, AccountID: types.NewAccountID(s.Node)}
	res := &ReplayResult{RunID: runID, Metrics: m}
	for i, txn := range txns {
		if err := exec.Ingest(txn, times[i]); err != nil {
			rlog.Info("Replay: not ingested", "index", i, "txid", txn.TxnID().Key(), "err", err)
			if report != nil {
				status, _ := types.StatusOf(err)
				fmt.Fprintf(report, "%d\t%s\tINGEST\t%s\n", i, txn.TxnID().Key(), status)
			}
			continue
		}
		out, err := exec.HandleTransaction(txn, creator, times[i])
		if errors.Cause(err) == types.ErrNetworkFrozen {
			rlog.Warn("Replay: network frozen", "index", i)
			break
		}
		if err != nil {
			return res, errors.Wrapf(err, "txn %d", i)
		}
		for _, r := range out.Records {
			res.Records++
			if report != nil {
				fmt.Fprintln(report, summary(i, r))
			}
		}
	}
	if stream := exec.Stream(); stream != nil {
		res.RunningHash = stream.RunningHash()
	}
	rlog.Info("Replay done", "txns", len(txns), "records", res.Records)
	return res, nil
}

func genesis(cfg *types.Config, s *Scenario, root *state.DBState) error {
	acc := account.NewAccountDB(root, cfg.Accounts.LastReservedSystemEntity)
	for _, a := range s.Accounts {
		if _, err := acc.LoadAccount(types.NewAccountID(a.Num)); err == nil {
			return nil
		}
	}
	if err := s.Genesis(root, cfg.Accounts.LastReservedSystemEntity); err != nil {
		return err
	}
	return root.Flush()
}

func summary(index int, r *record.Record) string {
	return fmt.Sprintf("%d\t%s\t%s\t%s\tfee=%d\tgas=%d\ttransfers=%v", index, r.TransactionID.Key(), r.Category, r.Status,
		r.TransactionFee, r.GasUsed, r.Transfers)
}
