// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"bytes"
	"io/ioutil"

	tml "github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config 配置信息
type Config struct {
	Title     string       `toml:"title"`
	Log       *Log         `toml:"log"`
	Store     *Store       `toml:"store"`
	Node      *Node        `toml:"node"`
	Handle    *Handle      `toml:"handle"`
	Txn       *Txn         `toml:"txn"`
	Contracts *Contracts   `toml:"contracts"`
	Throttle  *Throttle    `toml:"throttle"`
	Records   *Records     `toml:"records"`
	Accounts  *Accounts    `toml:"accounts"`
	Rates     *Rates       `toml:"rates"`
	Fees      *FeeSchedule `toml:"fees"`
	Files     *Files       `toml:"files"`
	Metrics   *Metrics     `toml:"metrics"`
}

// Log 日志配置
type Log struct {
	// 日志级别，支持debug(dbug)/info/warn/error(eror)/crit
	Loglevel        string `toml:"loglevel"`
	LogConsoleLevel string `toml:"logConsoleLevel"`
	// 日志文件名，可带目录，所有生成的日志文件都放到此目录下
	LogFile string `toml:"logFile"`
	// 单个日志文件的最大值（单位：兆）
	MaxFileSize uint32 `toml:"maxFileSize"`
	// 最多保存的历史日志文件个数
	MaxBackups uint32 `toml:"maxBackups"`
	// 最多保存的历史日志消息（单位：天）
	MaxAge         uint32 `toml:"maxAge"`
	LocalTime      bool   `toml:"localTime"`
	Compress       bool   `toml:"compress"`
	CallerFile     bool   `toml:"callerFile"`
	CallerFunction bool   `toml:"callerFunction"`
}

// Store root state storage
type Store struct {
	// goleveldb, gobadgerdb or memdb
	Driver  string `toml:"driver"`
	DbPath  string `toml:"dbPath"`
	DbCache int32  `toml:"dbCache"`
}

// Node identity of this node
type Node struct {
	SelfNodeID  int64 `toml:"selfNodeID"`
	SelfAccount int64 `toml:"selfAccount"`
}

// Handle limits of the dispatch stack
type Handle struct {
	MaxPresetTxnIDs       int32 `toml:"maxPresetTxnIDs"`
	MaxSavepointDepth     int32 `toml:"maxSavepointDepth"`
	PresetNonceMultiplier int32 `toml:"presetNonceMultiplier"`
	MaxPrecedingRecords   int32 `toml:"maxPrecedingRecords"`
	MaxFollowingRecords   int32 `toml:"maxFollowingRecords"`
}

// Txn transaction time box
type Txn struct {
	MinValidDurationSecs  int64 `toml:"minValidDurationSecs"`
	MaxValidDurationSecs  int64 `toml:"maxValidDurationSecs"`
	MinValidityBufferSecs int64 `toml:"minValidityBufferSecs"`
}

// Contracts gas throttling and pricing
type Contracts struct {
	ThrottleByGas     bool  `toml:"throttleByGas"`
	MaxGasPerSec      int64 `toml:"maxGasPerSec"`
	MaxGasPerTxn      int64 `toml:"maxGasPerTxn"`
	GasPriceTinycents int64 `toml:"gasPriceTinycents"`
}

// ThrottleBucket one bucket of the network utilization throttle
type ThrottleBucket struct {
	Name            string   `toml:"name"`
	OpsPerSec       int64    `toml:"opsPerSec"`
	BurstSeconds    int64    `toml:"burstSeconds"`
	Functionalities []string `toml:"functionalities"`
}

// Throttle network and frontend throttles
type Throttle struct {
	Buckets []*ThrottleBucket `toml:"bucket"`
	// congestion thresholds in percent of capacity, ascending
	CongestionLevels []int64 `toml:"congestionLevels"`
	// implicit creations per second this node admits
	FrontendCryptoCreateTps int64 `toml:"frontendCryptoCreateTps"`
}

// Records record stream options
type Records struct {
	StreamMode StreamMode `toml:"streamMode"`
	CacheSize  int        `toml:"cacheSize"`
	StreamFile string     `toml:"streamFile"`
}

// Accounts special account numbers
type Accounts struct {
	Funding                  int64 `toml:"funding"`
	StakingReward            int64 `toml:"stakingReward"`
	NodeReward               int64 `toml:"nodeReward"`
	Treasury                 int64 `toml:"treasury"`
	SystemAdmin              int64 `toml:"systemAdmin"`
	SystemDeleteAdmin        int64 `toml:"systemDeleteAdmin"`
	SystemUndeleteAdmin      int64 `toml:"systemUndeleteAdmin"`
	FreezeAdmin              int64 `toml:"freezeAdmin"`
	AddressBookAdmin         int64 `toml:"addressBookAdmin"`
	FeeSchedulesAdmin        int64 `toml:"feeSchedulesAdmin"`
	ExchangeRatesAdmin       int64 `toml:"exchangeRatesAdmin"`
	LastReservedSystemEntity int64 `toml:"lastReservedSystemEntity"`
}

// Rates exchange rate between hbar and cents
type Rates struct {
	HbarEquiv int64 `toml:"hbarEquiv"`
	CentEquiv int64 `toml:"centEquiv"`
}

// FeeSchedule flat fees in tinycents, converted to tinybars with the rate in effect
type FeeSchedule struct {
	NodeTinycents    int64 `toml:"nodeTinycents"`
	NetworkTinycents int64 `toml:"networkTinycents"`
	ServiceTinycents int64 `toml:"serviceTinycents"`

	// extra service fee per byte of the signed transaction
	ServicePerByteTinycents int64 `toml:"servicePerByteTinycents"`
}

// Files special file numbers
type Files struct {
	NetworkProperties int64 `toml:"networkProperties"`
	FeeSchedules      int64 `toml:"feeSchedules"`
	ExchangeRates     int64 `toml:"exchangeRates"`
	AddressBook       int64 `toml:"addressBook"`
}

// Metrics metrics registry options
type Metrics struct {
	Enable bool   `toml:"enable"`
	Prefix string `toml:"prefix"`
}

// DefaultConfig configuration used when a section is absent
func DefaultConfig() *Config {
	return &Config{
		Title: "local",
		Log: &Log{
			Loglevel:        "info",
			LogConsoleLevel: "info",
			MaxFileSize:     300,
			MaxBackups:      100,
			MaxAge:          28,
			LocalTime:       true,
			Compress:        true,
		},
		Store:  &Store{Driver: "goleveldb", DbPath: "datadir/state", DbCache: 64},
		Node:   &Node{SelfNodeID: 0, SelfAccount: 3},
		Handle: &Handle{MaxPresetTxnIDs: 1000, MaxSavepointDepth: 16, PresetNonceMultiplier: 53, MaxPrecedingRecords: 3, MaxFollowingRecords: 50},
		Txn:    &Txn{MinValidDurationSecs: 15, MaxValidDurationSecs: 180, MinValidityBufferSecs: 10},
		Contracts: &Contracts{
			ThrottleByGas:     true,
			MaxGasPerSec:      15000000,
			MaxGasPerTxn:      15000000,
			GasPriceTinycents: 852000,
		},
		Throttle: &Throttle{
			Buckets: []*ThrottleBucket{
				{Name: "ThroughputLimits", OpsPerSec: 10000, BurstSeconds: 1, Functionalities: []string{"CryptoTransfer", "FileUpdate", "ScheduleCreate", "ScheduleSign"}},
				{Name: "PriorityReservations", OpsPerSec: 100, BurstSeconds: 1, Functionalities: []string{"Freeze", "SystemDelete", "SystemUndelete"}},
			},
			CongestionLevels:        []int64{90, 95, 99},
			FrontendCryptoCreateTps: 2,
		},
		Records:  &Records{StreamMode: StreamRecords, CacheSize: 100000},
		Accounts: &Accounts{Funding: 98, StakingReward: 800, NodeReward: 801, Treasury: 2, SystemAdmin: 50, SystemDeleteAdmin: 59, SystemUndeleteAdmin: 60, FreezeAdmin: 58, AddressBookAdmin: 55, FeeSchedulesAdmin: 56, ExchangeRatesAdmin: 57, LastReservedSystemEntity: 750},
		Rates:    &Rates{HbarEquiv: 1, CentEquiv: 12},
		Fees:     &FeeSchedule{NodeTinycents: 1000000, NetworkTinycents: 2000000, ServiceTinycents: 7000000, ServicePerByteTinycents: 1000},
		Files:    &Files{NetworkProperties: 121, FeeSchedules: 111, ExchangeRates: 112, AddressBook: 101},
		Metrics:  &Metrics{Enable: true, Prefix: "dispatch"},
	}
}

// fillDefault sections missing from a decoded file take their default values
func fillDefault(cfg *Config) {
	def := DefaultConfig()
	if cfg.Title == "" {
		cfg.Title = def.Title
	}
	if cfg.Log == nil {
		cfg.Log = def.Log
	}
	if cfg.Store == nil {
		cfg.Store = def.Store
	}
	if cfg.Node == nil {
		cfg.Node = def.Node
	}
	if cfg.Handle == nil {
		cfg.Handle = def.Handle
	}
	if cfg.Handle.PresetNonceMultiplier == 0 {
		cfg.Handle.PresetNonceMultiplier = def.Handle.PresetNonceMultiplier
	}
	if cfg.Handle.MaxSavepointDepth == 0 {
		cfg.Handle.MaxSavepointDepth = def.Handle.MaxSavepointDepth
	}
	if cfg.Txn == nil {
		cfg.Txn = def.Txn
	}
	if cfg.Contracts == nil {
		cfg.Contracts = def.Contracts
	}
	if cfg.Throttle == nil {
		cfg.Throttle = def.Throttle
	}
	if cfg.Records == nil {
		cfg.Records = def.Records
	}
	if cfg.Records.StreamMode == "" {
		cfg.Records.StreamMode = StreamRecords
	}
	if cfg.Accounts == nil {
		cfg.Accounts = def.Accounts
	}
	if cfg.Rates == nil {
		cfg.Rates = def.Rates
	}
	if cfg.Fees == nil {
		cfg.Fees = def.Fees
	}
	if cfg.Files == nil {
		cfg.Files = def.Files
	}
	if cfg.Metrics == nil {
		cfg.Metrics = def.Metrics
	}
}

// Clone deep copy, so overrides applied inside a savepoint never leak into its parent
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	if c.Log != nil {
		v := *c.Log
		out.Log = &v
	}
	if c.Store != nil {
		v := *c.Store
		out.Store = &v
	}
	if c.Node != nil {
		v := *c.Node
		out.Node = &v
	}
	if c.Handle != nil {
		v := *c.Handle
		out.Handle = &v
	}
	if c.Txn != nil {
		v := *c.Txn
		out.Txn = &v
	}
	if c.Contracts != nil {
		v := *c.Contracts
		out.Contracts = &v
	}
	if c.Throttle != nil {
		v := *c.Throttle
		v.Buckets = make([]*ThrottleBucket, 0, len(c.Throttle.Buckets))
		for _, b := range c.Throttle.Buckets {
			nb := *b
			nb.Functionalities = append([]string(nil), b.Functionalities...)
			v.Buckets = append(v.Buckets, &nb)
		}
		v.CongestionLevels = append([]int64(nil), c.Throttle.CongestionLevels...)
		out.Throttle = &v
	}
	if c.Records != nil {
		v := *c.Records
		out.Records = &v
	}
	if c.Accounts != nil {
		v := *c.Accounts
		out.Accounts = &v
	}
	if c.Rates != nil {
		v := *c.Rates
		out.Rates = &v
	}
	if c.Fees != nil {
		v := *c.Fees
		out.Fees = &v
	}
	if c.Files != nil {
		v := *c.Files
		out.Files = &v
	}
	if c.Metrics != nil {
		v := *c.Metrics
		out.Metrics = &v
	}
	return &out
}

// Override applies toml overrides on top of a copy of c. Keys absent from cfgstring keep the
// values of c.
func (c *Config) Override(cfgstring string) (*Config, error) {
	var over map[string]interface{}
	if _, err := tml.Decode(cfgstring, &over); err != nil {
		return nil, errors.Wrap(err, "Override")
	}
	var buf bytes.Buffer
	if err := tml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, errors.Wrap(err, "Override.encode")
	}
	var base map[string]interface{}
	if _, err := tml.Decode(buf.String(), &base); err != nil {
		return nil, errors.Wrap(err, "Override.decode")
	}
	mergeTables(base, over)
	buf.Reset()
	if err := tml.NewEncoder(&buf).Encode(base); err != nil {
		return nil, errors.Wrap(err, "Override.merge")
	}
	return initCfgString(buf.String())
}

func mergeTables(dst, src map[string]interface{}) {
	for k, v := range src {
		if sm, ok := v.(map[string]interface{}); ok {
			if dm, ok := dst[k].(map[string]interface{}); ok {
				mergeTables(dm, sm)
				continue
			}
		}
		dst[k] = v
	}
}

// Validate checks the values the dispatch pipeline depends on
func (c *Config) Validate() error {
	if c.Handle.MaxSavepointDepth < 1 {
		return errors.Wrap(ErrInvalidParam, "handle.maxSavepointDepth")
	}
	if c.Handle.MaxPresetTxnIDs < 0 {
		return errors.Wrap(ErrInvalidParam, "handle.maxPresetTxnIDs")
	}
	switch c.Records.StreamMode {
	case StreamRecords, StreamBlocks, StreamBoth:
	default:
		return errors.Wrapf(ErrInvalidStreamMode, "records.streamMode %q", c.Records.StreamMode)
	}
	for _, b := range c.Throttle.Buckets {
		for _, name := range b.Functionalities {
			if _, ok := FunctionalityFromString(name); !ok {
				return errors.Wrapf(ErrInvalidParam, "throttle bucket %s functionality %s", b.Name, name)
			}
		}
	}
	if c.Rates.HbarEquiv <= 0 || c.Rates.CentEquiv <= 0 {
		return errors.Wrap(ErrInvalidParam, "rates")
	}
	return nil
}

func initCfgString(cfgstring string) (*Config, error) {
	var cfg Config
	if _, err := tml.Decode(cfgstring, &cfg); err != nil {
		return nil, err
	}
	fillDefault(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// InitCfg 初始化配置
func InitCfg(path string) *Config {
	return InitCfgString(readFile(path))
}

// InitCfgString 根据字符串初始化配置
func InitCfgString(cfgstring string) *Config {
	cfg, err := initCfgString(cfgstring)
	if err != nil {
		panic(err)
	}
	return cfg
}

// ReadCfgString non panicking variant of InitCfgString
func ReadCfgString(cfgstring string) (*Config, error) {
	return initCfgString(cfgstring)
}

func readFile(path string) string {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		panic(err)
	}
	return string(data)
}
